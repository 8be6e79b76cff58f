package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// Handler applies one event synchronously.
type Handler interface {
	Handle(ctx context.Context, event *entity.LedgerEvent) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds retry settings for the consumer.
type ConsumerConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultConsumerConfig returns the default consumer configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		MaxAttempts:  5,
		RetryBackoff: time.Second,
	}
}

// Consumer reads ledger events and hands them to the router. An offset is
// committed only after the event was handled, or given up on after
// MaxAttempts; the router's deduplicator keeps a redelivered event from being
// applied twice.
type Consumer struct {
	reader  messageReader
	handler Handler
	config  ConsumerConfig
}

// NewConsumer creates a consumer in cfg.GroupID reading cfg.Topic.
func NewConsumer(cfg Config, handler Handler, config ConsumerConfig) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return newConsumer(reader, handler, config)
}

func newConsumer(reader messageReader, handler Handler, config ConsumerConfig) *Consumer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConsumerConfig().MaxAttempts
	}
	return &Consumer{
		reader:  reader,
		handler: handler,
		config:  config,
	}
}

// Start begins the consume loop. It blocks until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	slog.Info("Ledger event consumer started", "max_attempts", c.config.MaxAttempts)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Ledger event consumer shutting down")
				return
			}
			slog.Error("Failed to fetch ledger event", "error", err)
			if !sleep(ctx, c.config.RetryBackoff) {
				return
			}
			continue
		}

		if !c.process(ctx, msg) {
			return
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// process handles and commits one message. It returns false once ctx is done.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	logger := slog.With("partition", msg.Partition, "offset", msg.Offset)

	event, err := decode(msg)
	if err != nil {
		logger.Error("Dropping undecodable ledger event", "error", err)
		return c.commit(ctx, logger, msg)
	}
	logger = logger.With("event_id", event.ID, "type", event.Type, "property_id", event.PropertyID)

	for attempt := 1; ; attempt++ {
		err := c.handler.Handle(ctx, event)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= c.config.MaxAttempts {
			logger.Error("Giving up on ledger event, derived views need reconciliation",
				"attempts", attempt,
				"error", err,
			)
			break
		}
		logger.Warn("Retrying ledger event", "attempt", attempt, "error", err)
		if !sleep(ctx, c.config.RetryBackoff*time.Duration(attempt)) {
			return false
		}
	}

	return c.commit(ctx, logger, msg)
}

func (c *Consumer) commit(ctx context.Context, logger *slog.Logger, msg kafka.Message) bool {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Error("Failed to commit ledger event", "error", err)
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
