package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandleAttempts bounds retries of one event before it is committed anyway.
// The worker's periodic mirror pass picks up whatever a dropped event missed.
const maxHandleAttempts = 5

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads snapshot commit events as a member of a consumer group.
type Consumer struct {
	reader  messageReader
	backoff func(attempt int) time.Duration
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		}),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * 500 * time.Millisecond
		},
	}
}

// DecodeSnapshotCommitted parses an event value. An event without a table
// name is rejected.
func DecodeSnapshotCommitted(data []byte) (SnapshotCommitted, error) {
	var ev SnapshotCommitted
	if err := json.Unmarshal(data, &ev); err != nil {
		return SnapshotCommitted{}, err
	}
	if ev.Table == "" {
		return SnapshotCommitted{}, errors.New("snapshot event without table")
	}
	return ev, nil
}

// Consume hands every event to handler until ctx is cancelled. Offsets are
// committed after the handler succeeds, after an undecodable event, or once
// the handler has failed maxHandleAttempts times.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, SnapshotCommitted) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		ev, err := DecodeSnapshotCommitted(msg.Value)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to decode kafka event",
				"error", err, "partition", msg.Partition, "offset", msg.Offset)
		} else if err := c.handle(ctx, ev, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.ErrorContext(ctx, "Dropping kafka event after retries",
				"error", err, "table", ev.Table, "offset", msg.Offset)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit kafka offset: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, ev SnapshotCommitted, handler func(context.Context, SnapshotCommitted) error) error {
	var err error
	for attempt := 0; attempt < maxHandleAttempts; attempt++ {
		if err = handler(ctx, ev); err == nil {
			slog.InfoContext(ctx, "Processed snapshot commit", "table", ev.Table, "rows", ev.Rows)
			return nil
		}
		wait := c.backoff(attempt)
		slog.WarnContext(ctx, "Failed to handle kafka event, retrying",
			"error", err, "table", ev.Table, "attempt", attempt+1, "backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
