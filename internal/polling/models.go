package polling

import (
	"fmt"
	"time"

	"claimgate/pkg/models"
)

// Pending interaction kinds: the three shapes of deferred, pollable work.
const (
	InteractionQueuedSubmission   = "queued-submission"
	InteractionInformationRequest = "information-request"
	InteractionCommunicationAck   = "communication-ack"
)

const (
	InteractionOpen   = "open"
	InteractionClosed = "closed"
)

// PendingInteraction is one unit of outstanding work awaiting asynchronous
// resolution. Created on send or on poll-discovery; closed when a matching
// response or acknowledgment is correlated.
type PendingInteraction struct {
	ID                string     `json:"id"`
	Kind              string     `json:"kind"`
	Status            string     `json:"status"`
	SubmissionID      string     `json:"submission_id,omitempty"`
	ExchangeRequestID string     `json:"exchange_request_id,omitempty"`
	FocusType         string     `json:"focus_type,omitempty"`
	FocusID           string     `json:"focus_id,omitempty"`
	DedupKey          string     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
}

// dedupKey makes interaction creation idempotent: re-discovering the same
// deferred work inserts nothing.
func dedupKey(kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// PollResult is the demultiplexed outcome of one poll cycle.
type PollResult struct {
	Adjudications       []models.ClaimResponse        `json:"adjudications"`
	InformationRequests []models.CommunicationRequest `json:"information_requests"`
	Acknowledgments     []models.Communication        `json:"acknowledgments"`
	Applied             int                           `json:"applied"`
}

// FocusRef names one focal resource with outstanding deferred work.
type FocusRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
