// Package ledger contains the accounting operations that change ledger entries
// and emit the events the maintainers react to.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// MaxDescriptionLength is the maximum allowed length for an entry description.
const MaxDescriptionLength = 500

// EntryOutput represents a ledger entry in use case outputs.
type EntryOutput struct {
	ID             int64
	PropertyID     uuid.UUID
	ParentID       *int64
	Kind           entity.EntryKind
	Status         entity.EntryStatus
	Amount         decimal.Decimal
	Balance        decimal.Decimal
	LedgerDate     time.Time
	AccountingDate time.Time
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func toEntryOutput(e *entity.LedgerEntry) *EntryOutput {
	return &EntryOutput{
		ID:             e.ID,
		PropertyID:     e.PropertyID,
		ParentID:       e.ParentID,
		Kind:           e.Kind,
		Status:         e.Status,
		Amount:         e.Amount,
		Balance:        e.Balance,
		LedgerDate:     e.LedgerDate,
		AccountingDate: e.AccountingDate,
		Description:    e.Description,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// checkOwner verifies that userID owns propertyID.
func checkOwner(ctx context.Context, owners adapter.OwnershipChecker, userID, propertyID uuid.UUID) error {
	ok, err := owners.IsOwner(ctx, userID, propertyID)
	if err != nil {
		if errors.Is(err, domainerror.ErrPropertyNotFound) {
			return domainerror.NewPropertyError(
				domainerror.ErrCodePropertyNotFound,
				"property not found",
				domainerror.ErrPropertyNotFound,
			)
		}
		return fmt.Errorf("failed to check property ownership: %w", err)
	}
	if !ok {
		return domainerror.NewPropertyError(
			domainerror.ErrCodeNotPropertyOwner,
			"not authorized to access this property",
			domainerror.ErrNotPropertyOwner,
		)
	}
	return nil
}

// findOwnedEntry loads an entry and verifies that userID owns its property.
func findOwnedEntry(
	ctx context.Context,
	entries adapter.LedgerEntryRepository,
	owners adapter.OwnershipChecker,
	userID uuid.UUID,
	entryID int64,
) (*entity.LedgerEntry, error) {
	entry, err := findEntry(ctx, entries, entryID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(ctx, owners, userID, entry.PropertyID); err != nil {
		return nil, err
	}
	return entry, nil
}

// lockOwnedEntry is findOwnedEntry under the property write lock. The entry is
// read again once the lock is held, and the lock stays held until the caller
// has stored its change and published the event, so events of one property
// leave in the order their changes reached the store.
func lockOwnedEntry(
	ctx context.Context,
	entries adapter.LedgerEntryRepository,
	owners adapter.OwnershipChecker,
	locker adapter.PropertyLocker,
	userID uuid.UUID,
	entryID int64,
) (*entity.LedgerEntry, func(), error) {
	entry, err := findOwnedEntry(ctx, entries, owners, userID, entryID)
	if err != nil {
		return nil, nil, err
	}
	if locker == nil {
		return entry, func() {}, nil
	}

	unlock, err := locker.Lock(ctx, entry.PropertyID)
	if err != nil {
		return nil, nil, domainerror.NewLedgerError(
			domainerror.ErrCodeLockNotObtained,
			fmt.Sprintf("could not lock property %s", entry.PropertyID),
			err,
		)
	}

	entry, err = findEntry(ctx, entries, entryID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return entry, unlock, nil
}

func findEntry(ctx context.Context, entries adapter.LedgerEntryRepository, entryID int64) (*entity.LedgerEntry, error) {
	entry, err := entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, domainerror.ErrEntryNotFound) {
			return nil, entryNotFound()
		}
		return nil, fmt.Errorf("failed to find ledger entry: %w", err)
	}
	return entry, nil
}

func entryNotFound() error {
	return domainerror.NewLedgerError(
		domainerror.ErrCodeEntryNotFound,
		"ledger entry not found",
		domainerror.ErrEntryNotFound,
	)
}

// publish hands the event to the publisher. The entry change is already
// stored, so a failure here leaves the derived views behind until redelivery
// or reconciliation.
func publish(ctx context.Context, publisher adapter.EventPublisher, event *entity.LedgerEvent) error {
	if err := publisher.Publish(ctx, event); err != nil {
		slog.Error("Failed to publish ledger event",
			"event_id", event.ID,
			"type", event.Type,
			"entry_id", event.EntryID,
			"property_id", event.PropertyID,
			"error", err,
		)
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.Round(entity.AmountDecimals).IsZero() {
		return domainerror.NewLedgerError(
			domainerror.ErrCodeInvalidAmount,
			"amount must not be zero",
			domainerror.ErrInvalidAmount,
		)
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return domainerror.NewLedgerError(
			domainerror.ErrCodeDescriptionLong,
			fmt.Sprintf("description must not exceed %d characters", MaxDescriptionLength),
			domainerror.ErrDescriptionTooLong,
		)
	}
	return nil
}
