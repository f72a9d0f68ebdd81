package batch

import (
	"encoding/json"
	"time"

	"claimgate/pkg/cel"
	"claimgate/pkg/models"
)

const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusQueued   = "queued"
	StatusComplete = "complete"
	StatusRejected = "rejected"
	StatusPartial  = "partial"
	StatusError    = "error"
)

// Record groups member claim submissions under one receiver. Members holds
// the submission ids in sequence order: member i carries sequence number
// i+1 on the wire and adjudication results are re-associated through it.
type Record struct {
	ID               string               `json:"id"`
	ReceiverID       string               `json:"receiver_id"`
	Status           string               `json:"status"`
	Members          []string             `json:"members"`
	ExchangeID       string               `json:"exchange_id,omitempty"`
	ApprovedCount    int                  `json:"approved_count"`
	RejectedCount    int                  `json:"rejected_count"`
	PendingCount     int                  `json:"pending_count"`
	RequestEnvelope  json.RawMessage      `json:"request_envelope,omitempty"`
	ResponseEnvelope json.RawMessage      `json:"response_envelope,omitempty"`
	Errors           []models.ErrorRecord `json:"errors,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	SubmittedAt      *time.Time           `json:"submitted_at,omitempty"`
}

// IsTerminal reports whether the batch can still change. A partial batch
// stays open while any member remains unadjudicated.
func (r *Record) IsTerminal() bool {
	switch r.Status {
	case StatusComplete, StatusRejected, StatusError:
		return true
	case StatusPartial:
		return r.PendingCount == 0
	}
	return false
}

// reassignable reports whether member claims may leave this batch for
// another one.
func (r *Record) reassignable() bool {
	return r.Status == StatusDraft || r.Status == StatusError || r.Status == StatusRejected
}

type CreateRequest struct {
	SubmissionIDs []string `json:"submission_ids"`
}

// Counts is the aggregate view over member adjudication categories.
type Counts struct {
	Approved int
	Rejected int
	Pending  int
}

// Aggregate folds member categories into a batch status. All approved means
// complete, all rejected means rejected, mixed adjudications mean partial.
// Uniform results so far with members still awaiting adjudication keep the
// batch queued.
func Aggregate(categories []cel.Category) (string, Counts) {
	var counts Counts
	for _, category := range categories {
		switch category {
		case cel.CategoryApproved:
			counts.Approved++
		case cel.CategoryDenied:
			counts.Rejected++
		default:
			counts.Pending++
		}
	}

	switch {
	case counts.Approved > 0 && counts.Rejected > 0:
		return StatusPartial, counts
	case counts.Pending > 0:
		return StatusQueued, counts
	case counts.Rejected == 0:
		return StatusComplete, counts
	default:
		return StatusRejected, counts
	}
}
