package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"careers-portal/backend/internal/audit/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher is a Sink that writes events as JSON to a Kafka topic. cmd/worker
// consumes the topic and persists events to Postgres.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher returns a publisher for topic. Returns nil when brokers or topic are empty.
// Call Close when shutting down.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

// Write publishes e keyed by email so one address's events stay ordered on a partition.
func (p *KafkaPublisher) Write(ctx context.Context, e *domain.Event) error {
	if p == nil || p.writer == nil || e == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	var key []byte
	if e.Email != "" {
		key = []byte(e.Email)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: payload})
}

// Close closes the Kafka writer. Safe on a nil publisher.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// DecodeEvent parses a message value written by KafkaPublisher.
func DecodeEvent(payload []byte) (*domain.Event, error) {
	var e domain.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	if e.ID == "" || e.Action == "" {
		return nil, errors.New("audit: event missing id or action")
	}
	if e.IP == "" {
		e.IP = "unknown"
	}
	return &e, nil
}
