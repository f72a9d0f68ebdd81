package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"claimgate/internal/config"
	"claimgate/internal/constants"
	"claimgate/internal/logger"
	"claimgate/pkg/metrics"
	"claimgate/pkg/models"
	"claimgate/pkg/tracing"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

// Publish writes one lifecycle event. The submission or batch id keys the
// message so transitions for the same record stay ordered within a partition.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, event models.LifecycleEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	key := event.SubmissionID
	if key == "" {
		key = event.BatchID
	}

	headers := []kafka.Header{}
	headers = tracing.InjectTraceContext(ctx, headers)

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(key),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	if err != nil {
		metrics.LifecycleEventsTotal.WithLabelValues(event.EventType, "error").Inc()
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.LifecycleEventsTotal.WithLabelValues(event.EventType, "ok").Inc()
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
