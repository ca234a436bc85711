// Package kafka publishes and consumes snapshot commit events on a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// SnapshotCommitted is the event value written for every committed table.
type SnapshotCommitted struct {
	Table     string    `json:"table"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		now: time.Now,
	}
}

// PublishSnapshotCommitted writes one event keyed by table name, so events of
// the same table stay ordered within a partition.
func (p *Publisher) PublishSnapshotCommitted(ctx context.Context, table string, rows int) error {
	data, err := json.Marshal(SnapshotCommitted{Table: table, Rows: rows, Timestamp: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(table), Value: data}); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
