package models

import "time"

// Lifecycle event types published to the broker.
const (
	EventTypeSubmissionStatusChanged = "submission.status_changed"
	EventTypeBatchStatusChanged      = "batch.status_changed"
)

// LifecycleEvent announces a submission or batch status transition to
// downstream consumers. Publishing is fire-and-forget; the stored record is
// the source of truth.
type LifecycleEvent struct {
	EventType    string    `json:"event_type"`
	SubmissionID string    `json:"submission_id,omitempty"`
	BatchID      string    `json:"batch_id,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
	Disposition  string    `json:"disposition,omitempty"`
	ErrorCodes   []string  `json:"error_codes,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
