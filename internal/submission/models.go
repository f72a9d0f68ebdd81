package submission

import (
	"encoding/json"
	"time"

	"claimgate/pkg/models"
)

// Lifecycle states. Queued is non-terminal: the exchange accepted the
// envelope and the adjudication arrives later through a poll or
// status-check.
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusQueued   = "queued"
	StatusComplete = "complete"
	StatusError    = "error"
)

// Submission kinds.
const (
	KindEligibility   = "eligibility"
	KindPriorAuth     = "prior-auth"
	KindClaim         = "claim"
	KindCancel        = "cancel"
	KindBatch         = "batch"
	KindCommunication = "communication"
)

// Submission is one outbound unit of work. The request envelope is
// immutable once transmitted; only the response side and derived status
// fields change afterwards.
type Submission struct {
	ID               string               `json:"id"`
	ExchangeID       string               `json:"exchange_id,omitempty"`
	Kind             string               `json:"kind"`
	Status           string               `json:"status"`
	ReceiverID       string               `json:"receiver_id"`
	FocusType        string               `json:"focus_type,omitempty"`
	FocusID          string               `json:"focus_id,omitempty"`
	PatientID        string               `json:"patient_id,omitempty"`
	CoverageID       string               `json:"coverage_id,omitempty"`
	ProviderID       string               `json:"provider_id,omitempty"`
	InsurerID        string               `json:"insurer_id,omitempty"`
	BatchID          *string              `json:"batch_id,omitempty"`
	RequestPayload   json.RawMessage      `json:"request_payload,omitempty"`
	RequestEnvelope  json.RawMessage      `json:"request_envelope,omitempty"`
	ResponseEnvelope json.RawMessage      `json:"response_envelope,omitempty"`
	Disposition      string               `json:"disposition,omitempty"`
	ApprovedAmount   *float64             `json:"approved_amount,omitempty"`
	DeniedAmount     *float64             `json:"denied_amount,omitempty"`
	Errors           []models.ErrorRecord `json:"errors,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	SubmittedAt      *time.Time           `json:"submitted_at,omitempty"`
}

// IsTerminal reports whether no further transitions are possible.
func (s *Submission) IsTerminal() bool {
	return s.Status == StatusComplete || s.Status == StatusError
}

// SubmitRequest carries the already-resolved inputs for one submission.
// Exactly one payload field must be set, matching the kind.
type SubmitRequest struct {
	Kind          string                     `json:"kind"`
	ReceiverID    string                     `json:"receiver_id"`
	Eligibility   *models.EligibilityRequest `json:"eligibility,omitempty"`
	Claim         *models.Claim              `json:"claim,omitempty"`
	Communication *models.Communication      `json:"communication,omitempty"`
}

// CancelRequest is the body of a cancel call.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// OutcomeUpdate is everything one state transition writes. Status, response
// envelope and derived fields land in a single atomic update.
type OutcomeUpdate struct {
	Status           string
	ExchangeID       string
	ResponseEnvelope json.RawMessage
	Disposition      string
	ApprovedAmount   *float64
	DeniedAmount     *float64
	Errors           []models.ErrorRecord
}
