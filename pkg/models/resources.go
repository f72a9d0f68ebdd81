package models

// Payload outcome values reported by the exchange on adjudicated resources.
const (
	OutcomeComplete = "complete"
	OutcomeQueued   = "queued"
	OutcomeError    = "error"
	OutcomePartial  = "partial"
)

// Task status values.
const (
	TaskRequested = "requested"
	TaskAccepted  = "accepted"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskRejected  = "rejected"
)

type EligibilityRequest struct {
	PatientID    string   `json:"patient_id"`
	CoverageID   string   `json:"coverage_id"`
	InsurerID    string   `json:"insurer_id"`
	ServiceTypes []string `json:"service_types,omitempty"`
	ServicedDate string   `json:"serviced_date,omitempty"`
}

type EligibilityResponse struct {
	RequestID   string    `json:"request_id"`
	CoverageID  string    `json:"coverage_id"`
	Outcome     string    `json:"outcome"`
	Disposition string    `json:"disposition,omitempty"`
	Inforce     bool      `json:"inforce"`
	Benefits    []Benefit `json:"benefits,omitempty"`
}

type Benefit struct {
	ServiceType string  `json:"service_type"`
	Allowed     float64 `json:"allowed"`
	Used        float64 `json:"used"`
	Currency    string  `json:"currency,omitempty"`
}

// Claim carries one claim or prior-authorization request. SequenceNumber is
// set only for members of a batch envelope.
type Claim struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	PatientID      string      `json:"patient_id"`
	CoverageID     string      `json:"coverage_id"`
	ProviderID     string      `json:"provider_id"`
	InsurerID      string      `json:"insurer_id"`
	Total          float64     `json:"total"`
	Currency       string      `json:"currency,omitempty"`
	Items          []ClaimItem `json:"items,omitempty"`
	SequenceNumber int         `json:"sequence_number,omitempty"`
}

type ClaimItem struct {
	Sequence  int     `json:"sequence"`
	Service   string  `json:"service"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ClaimResponse is the adjudication result for a claim, prior-auth or cancel.
// SequenceNumber re-associates a batch member with its original claim.
type ClaimResponse struct {
	ClaimID        string   `json:"claim_id"`
	ExchangeID     string   `json:"exchange_id,omitempty"`
	BatchID        string   `json:"batch_id,omitempty"`
	SequenceNumber int      `json:"sequence_number,omitempty"`
	Outcome        string   `json:"outcome"`
	Disposition    string   `json:"disposition,omitempty"`
	ApprovedAmount *float64 `json:"approved_amount,omitempty"`
	DeniedAmount   *float64 `json:"denied_amount,omitempty"`
	Currency       string   `json:"currency,omitempty"`
}

// Task represents an exchange-side unit of work (poll, cancel, status-check).
// Failure-typed outputs on a terminal task carry business error details.
type Task struct {
	ID        string       `json:"id"`
	Code      string       `json:"code"`
	Status    string       `json:"status"`
	FocusType string       `json:"focus_type,omitempty"`
	FocusID   string       `json:"focus_id,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Outputs   []TaskOutput `json:"outputs,omitempty"`
}

type TaskOutput struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Communication is an outbound note to the exchange or the exchange's
// acknowledgment of one; InResponseTo back-references the original.
type Communication struct {
	ID           string     `json:"id"`
	Status       string     `json:"status,omitempty"`
	Category     string     `json:"category,omitempty"`
	About        *Reference `json:"about,omitempty"`
	InResponseTo string     `json:"in_response_to,omitempty"`
	Payload      []string   `json:"payload,omitempty"`
}

// CommunicationRequest is the exchange asking the submitter for more
// material about a submission.
type CommunicationRequest struct {
	ID       string     `json:"id"`
	Category string     `json:"category,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	About    *Reference `json:"about,omitempty"`
}

// OperationOutcome is the structural-error payload: a list of issues the
// exchange raised against the request.
type OperationOutcome struct {
	Issues []OutcomeIssue `json:"issues"`
}

type OutcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
	Expression  string `json:"expression,omitempty"`
}
