// Package kafka carries ledger events between services over Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
)

// Header names set on every event message.
const (
	HeaderEventType = "event-type"
	HeaderEventID   = "event-id"
)

// Config holds configuration for the Kafka transport.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes ledger events keyed by property ID, so every event of a
// property lands on the same partition and keeps its order.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher writing to cfg.Topic.
func NewPublisher(cfg Config) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

var _ adapter.EventPublisher = (*Publisher)(nil)

// Publish writes one event and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, event *entity.LedgerEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event %s: %w", event.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encode(event *entity.LedgerEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	return kafka.Message{
		Key:   []byte(event.PropertyID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Type)},
			{Key: HeaderEventID, Value: []byte(event.ID.String())},
		},
	}, nil
}

func decode(msg kafka.Message) (*entity.LedgerEvent, error) {
	var event entity.LedgerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event at offset %d: %w", msg.Offset, err)
	}
	return &event, nil
}
