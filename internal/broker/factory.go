package broker

import (
	"context"
	"fmt"

	"claimgate/internal/config"
	"claimgate/internal/logger"
	"claimgate/pkg/models"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	case "", "none":
		return NopProducer{}, nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

// NopProducer discards events. Used when no broker is configured and in
// tests that do not care about lifecycle notifications.
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, topic string, event models.LifecycleEvent) error {
	return nil
}

func (NopProducer) Close() error { return nil }
