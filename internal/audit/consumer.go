package audit

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"careers-portal/backend/internal/audit/domain"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads events published by KafkaPublisher and writes them to a sink, normally
// the Postgres audit repository. Offsets are committed only after a successful write or a
// permanent rejection, so delivery is at-least-once and the sink must tolerate redelivered ids.
type Consumer struct {
	reader       messageReader
	sink         Sink
	logger       *zap.Logger
	writeTimeout time.Duration
	retryDelay   time.Duration
}

// NewConsumer returns a consumer in groupID for topic.
func NewConsumer(brokers []string, topic, groupID string, sink Sink, logger *zap.Logger, writeTimeout time.Duration) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
	return newConsumer(r, sink, logger, writeTimeout)
}

func newConsumer(r messageReader, sink Sink, logger *zap.Logger, writeTimeout time.Duration) *Consumer {
	return &Consumer{
		reader:       r,
		sink:         sink,
		logger:       logger,
		writeTimeout: writeTimeout,
		retryDelay:   time.Second,
	}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("audit consumer: fetch failed", zap.Error(err))
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}

		e, err := DecodeEvent(msg.Value)
		if err != nil {
			c.logger.Error("audit consumer: skipping undecodable message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		} else if !c.writeWithRetry(ctx, msg, e) {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Warn("audit consumer: commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// writeWithRetry writes e, retrying transient failures until ctx ends. An event the sink
// rejects permanently is logged and skipped so it cannot block the partition. It reports
// whether the message may be committed.
func (c *Consumer) writeWithRetry(ctx context.Context, msg kafka.Message, e *domain.Event) bool {
	for {
		wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
		err := c.sink.Write(wctx, e)
		cancel()
		if err == nil {
			return true
		}
		if errors.Is(err, domain.ErrEventRejected) {
			c.logger.Error("audit consumer: skipping rejected event",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.String("event_id", e.ID),
				zap.Error(err),
			)
			return true
		}
		c.logger.Warn("audit consumer: write failed, retrying",
			zap.String("event_id", e.ID),
			zap.Error(err),
		)
		if !c.sleep(ctx) {
			return false
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retryDelay):
		return true
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
