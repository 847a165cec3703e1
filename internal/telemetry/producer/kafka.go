// Package producer emits telemetry events to Kafka for deployments that ship
// console activity into a streaming pipeline instead of (or alongside) OTLP.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"tenant-admin-console/internal/telemetry/domain"
)

const emitTimeout = 2 * time.Second

// KafkaProducer implements telemetry.EventEmitter using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a producer that writes events to the given topic.
// Returns nil when brokers or topic are unset (telemetry disabled). Call
// Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Emit serializes the event as JSON and writes it to the topic. A short
// timeout keeps slow brokers from blocking login paths.
func (p *KafkaProducer) Emit(ctx context.Context, event *domain.Event) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]any{
		"tenant_id":  event.TenantID,
		"user_id":    event.UserID,
		"event_type": event.EventType,
		"source":     event.Source,
		"metadata":   json.RawMessage(nonNil(event.Metadata)),
		"created_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TenantID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func nonNil(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}
