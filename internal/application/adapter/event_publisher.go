// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// EventPublisher delivers ledger events to the maintainers.
type EventPublisher interface {
	Publish(ctx context.Context, event *entity.LedgerEvent) error
}

// Deduplicator records which (event, listener) pairs were already handled.
type Deduplicator interface {
	// Claim marks key as handled. It returns false when key was already claimed.
	Claim(ctx context.Context, key string) (bool, error)

	// Release forgets key so a redelivery is handled again.
	Release(ctx context.Context, key string) error
}
