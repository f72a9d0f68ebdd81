package broker

import (
	"context"

	"claimgate/pkg/models"
)

// Producer publishes lifecycle events. Implementations must be safe for
// concurrent use.
type Producer interface {
	Publish(ctx context.Context, topic string, event models.LifecycleEvent) error
	Close() error
}
