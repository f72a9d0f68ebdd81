package submission

import (
	"context"
	"time"

	"claimgate/internal/broker"
	"claimgate/internal/logger"
	"claimgate/pkg/models"
)

// LifecycleNotifier publishes status transitions to the broker. Publishing
// is fire-and-forget: the stored record is the source of truth and a broker
// outage never fails a submission.
type LifecycleNotifier struct {
	producer broker.Producer
	topic    string
	logger   logger.Logger
}

func NewLifecycleNotifier(producer broker.Producer, topic string, log logger.Logger) *LifecycleNotifier {
	return &LifecycleNotifier{
		producer: producer,
		topic:    topic,
		logger:   log,
	}
}

func (n *LifecycleNotifier) SubmissionTransition(ctx context.Context, sub *Submission, fromStatus string) {
	if n == nil || n.producer == nil || n.topic == "" {
		return
	}

	event := models.LifecycleEvent{
		EventType:    models.EventTypeSubmissionStatusChanged,
		SubmissionID: sub.ID,
		Kind:         sub.Kind,
		FromStatus:   fromStatus,
		ToStatus:     sub.Status,
		Disposition:  sub.Disposition,
		ErrorCodes:   models.Codes(sub.Errors),
		Timestamp:    time.Now().UTC(),
	}

	if err := n.producer.Publish(ctx, n.topic, event); err != nil {
		n.logger.WarnwCtx(ctx, "Failed to publish submission lifecycle event",
			"error", err,
			"submission_id", sub.ID,
			"to_status", sub.Status,
		)
	}
}

func (n *LifecycleNotifier) BatchTransition(ctx context.Context, batchID, fromStatus, toStatus string) {
	if n == nil || n.producer == nil || n.topic == "" {
		return
	}

	event := models.LifecycleEvent{
		EventType:  models.EventTypeBatchStatusChanged,
		BatchID:    batchID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Timestamp:  time.Now().UTC(),
	}

	if err := n.producer.Publish(ctx, n.topic, event); err != nil {
		n.logger.WarnwCtx(ctx, "Failed to publish batch lifecycle event",
			"error", err,
			"batch_id", batchID,
			"to_status", toStatus,
		)
	}
}
