// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// LedgerEntryRepository defines the persistence operations on ledger entries.
// Lookups of neighbouring entries only consider accepted, non-deleted rows whose
// balance has been applied, and order strictly by sequence (entry ID).
type LedgerEntryRepository interface {
	// Create persists a new entry and assigns its sequence ID.
	Create(ctx context.Context, entry *entity.LedgerEntry) error

	// FindByID retrieves a non-deleted entry by its sequence ID.
	FindByID(ctx context.Context, id int64) (*entity.LedgerEntry, error)

	// FindAnyByID retrieves an entry by its sequence ID, including soft-deleted rows.
	FindAnyByID(ctx context.Context, id int64) (*entity.LedgerEntry, error)

	// Update persists status, amount, dates and description of an entry.
	Update(ctx context.Context, entry *entity.LedgerEntry) error

	// Delete soft-deletes an entry.
	Delete(ctx context.Context, id int64) error

	// ListChildren returns the non-deleted splits of parentID in ascending sequence.
	ListChildren(ctx context.Context, parentID int64) ([]*entity.LedgerEntry, error)

	// UpdateBalance stores the running balance of a non-deleted entry and marks
	// it applied. Returns ErrEntryNotFound when the entry is gone.
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error

	// FindPrecedingAccepted returns the accepted entry with the largest sequence
	// below sequence, or nil when there is none.
	FindPrecedingAccepted(ctx context.Context, propertyID uuid.UUID, sequence int64) (*entity.LedgerEntry, error)

	// FindFollowingAccepted returns the accepted entry with the smallest sequence
	// above sequence, or nil when there is none.
	FindFollowingAccepted(ctx context.Context, propertyID uuid.UUID, sequence int64) (*entity.LedgerEntry, error)

	// FindLatestAccepted returns the accepted entry with the largest sequence, or nil.
	FindLatestAccepted(ctx context.Context, propertyID uuid.UUID) (*entity.LedgerEntry, error)

	// ListAcceptedAfter returns up to limit accepted entries with sequence above
	// afterSequence, in ascending sequence order, whether applied or not.
	ListAcceptedAfter(ctx context.Context, propertyID uuid.UUID, afterSequence int64, limit int) ([]*entity.LedgerEntry, error)
}
