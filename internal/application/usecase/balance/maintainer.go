// Package balance maintains the running balance stored on accepted ledger entries.
package balance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// DefaultPageSize is the number of later entries shifted per store round trip.
const DefaultPageSize = 200

// Config holds tuning options for the maintainer.
type Config struct {
	PageSize int
}

// DefaultConfig returns the default maintainer configuration.
func DefaultConfig() Config {
	return Config{PageSize: DefaultPageSize}
}

// Maintainer keeps balance[i] = balance[i-1] + amount[i] over the accepted
// entries of each property, ordered by sequence.
//
// Every mutating operation holds the property lock, so operations on one
// property are applied one at a time while other properties proceed in parallel.
// Amounts are taken from the event snapshot handed in, never re-read from the
// store, so a later edit that is still queued is not applied twice.
//
// Only entries marked BalanceApplied take part in the running sum. An entry that
// is accepted in the store but whose acceptance has not been processed yet is
// invisible to neighbour lookups and shifts, and gets its balance when its own
// acceptance arrives.
type Maintainer struct {
	entries  adapter.LedgerEntryRepository
	locker   adapter.PropertyLocker
	pageSize int
}

// NewMaintainer creates a new balance maintainer.
func NewMaintainer(entries adapter.LedgerEntryRepository, locker adapter.PropertyLocker, config Config) *Maintainer {
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Maintainer{
		entries:  entries,
		locker:   locker,
		pageSize: pageSize,
	}
}

// OnAccepted sets the balance of a newly accepted entry from its predecessor.
// When accepted entries with a higher sequence already exist, they are shifted
// by the entry's amount so acceptance order does not matter.
func (m *Maintainer) OnAccepted(ctx context.Context, entry *entity.LedgerEntry) error {
	unlock, err := m.lock(ctx, entry.PropertyID)
	if err != nil {
		return err
	}
	defer unlock()

	stored, err := m.entries.FindAnyByID(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to load entry %d: %w", entry.ID, err)
	}
	if stored.IsDeleted() || stored.BalanceApplied {
		return nil
	}

	previous, err := m.previousBalance(ctx, entry.PropertyID, entry.ID)
	if err != nil {
		return err
	}

	balance := previous.Add(entry.Amount)
	if err := m.entries.UpdateBalance(ctx, entry.ID, balance); err != nil {
		if errors.Is(err, domainerror.ErrEntryNotFound) {
			return nil
		}
		return fmt.Errorf("failed to store balance of entry %d: %w", entry.ID, err)
	}

	shifted, err := m.shiftAfter(ctx, entry.PropertyID, entry.ID, entry.Amount)
	if err != nil {
		return err
	}

	slog.Debug("Balance set for accepted entry",
		"property_id", entry.PropertyID,
		"entry_id", entry.ID,
		"balance", balance.StringFixed(entity.AmountDecimals),
		"shifted", shifted,
	)
	return nil
}

// OnAmountChanged recomputes the balance of an amended entry, whose Amount holds
// the new value, and shifts every later accepted entry by the amount difference.
// An entry deleted since the change still shifts its successors; the delete
// that follows removes the new amount.
func (m *Maintainer) OnAmountChanged(ctx context.Context, entry *entity.LedgerEntry, oldAmount decimal.Decimal) error {
	unlock, err := m.lock(ctx, entry.PropertyID)
	if err != nil {
		return err
	}
	defer unlock()

	stored, err := m.entries.FindAnyByID(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to load entry %d: %w", entry.ID, err)
	}
	if !stored.BalanceApplied {
		return nil
	}

	if !stored.IsDeleted() {
		previous, err := m.previousBalance(ctx, entry.PropertyID, entry.ID)
		if err != nil {
			return err
		}
		balance := previous.Add(entry.Amount)
		if err := m.entries.UpdateBalance(ctx, entry.ID, balance); err != nil && !errors.Is(err, domainerror.ErrEntryNotFound) {
			return fmt.Errorf("failed to store balance of entry %d: %w", entry.ID, err)
		}
	}

	delta := entry.Amount.Sub(oldAmount)
	shifted, err := m.shiftAfter(ctx, entry.PropertyID, entry.ID, delta)
	if err != nil {
		return err
	}

	slog.Debug("Balance shifted after amount change",
		"property_id", entry.PropertyID,
		"entry_id", entry.ID,
		"delta", delta.StringFixed(entity.AmountDecimals),
		"shifted", shifted,
	)
	return nil
}

// OnDeleted removes a deleted entry's amount from every later accepted entry.
// The deleted entry must no longer be visible as accepted in the store.
func (m *Maintainer) OnDeleted(ctx context.Context, entry *entity.LedgerEntry) error {
	unlock, err := m.lock(ctx, entry.PropertyID)
	if err != nil {
		return err
	}
	defer unlock()

	stored, err := m.entries.FindAnyByID(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to load entry %d: %w", entry.ID, err)
	}
	if !stored.BalanceApplied {
		return nil
	}

	next, err := m.entries.FindFollowingAccepted(ctx, entry.PropertyID, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to find entry following %d: %w", entry.ID, err)
	}
	if next == nil {
		return nil
	}
	if next.ID <= entry.ID {
		return orderingError(entry.PropertyID, entry.ID, next.ID)
	}

	delta := entry.Amount.Neg()
	if err := m.entries.UpdateBalance(ctx, next.ID, next.Balance.Add(delta)); err != nil {
		return fmt.Errorf("failed to store balance of entry %d: %w", next.ID, err)
	}

	shifted, err := m.shiftAfter(ctx, entry.PropertyID, next.ID, delta)
	if err != nil {
		return err
	}

	slog.Debug("Balance shifted after delete",
		"property_id", entry.PropertyID,
		"entry_id", entry.ID,
		"delta", delta.StringFixed(entity.AmountDecimals),
		"shifted", shifted+1,
	)
	return nil
}

// GetBalance returns the balance of the latest accepted entry, or zero.
func (m *Maintainer) GetBalance(ctx context.Context, propertyID uuid.UUID) (decimal.Decimal, error) {
	latest, err := m.entries.FindLatestAccepted(ctx, propertyID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to find latest accepted entry: %w", err)
	}
	if latest == nil {
		return decimal.Zero, nil
	}
	return latest.Balance, nil
}

// previousBalance returns the balance of the accepted entry preceding sequence, or zero.
func (m *Maintainer) previousBalance(ctx context.Context, propertyID uuid.UUID, sequence int64) (decimal.Decimal, error) {
	previous, err := m.entries.FindPrecedingAccepted(ctx, propertyID, sequence)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to find entry preceding %d: %w", sequence, err)
	}
	if previous == nil {
		return decimal.Zero, nil
	}
	if previous.ID >= sequence {
		return decimal.Zero, orderingError(propertyID, sequence, previous.ID)
	}
	return previous.Balance, nil
}

// shiftAfter adds delta to every applied entry after sequence in one ascending,
// paginated pass. It returns the number of entries shifted.
func (m *Maintainer) shiftAfter(ctx context.Context, propertyID uuid.UUID, sequence int64, delta decimal.Decimal) (int, error) {
	if delta.IsZero() {
		return 0, nil
	}

	shifted := 0
	cursor := sequence
	for {
		page, err := m.entries.ListAcceptedAfter(ctx, propertyID, cursor, m.pageSize)
		if err != nil {
			return shifted, fmt.Errorf("failed to list entries after %d: %w", cursor, err)
		}

		for _, e := range page {
			if e.ID <= cursor {
				return shifted, orderingError(propertyID, cursor, e.ID)
			}
			cursor = e.ID
			if !e.BalanceApplied {
				continue
			}
			if err := m.entries.UpdateBalance(ctx, e.ID, e.Balance.Add(delta)); err != nil {
				return shifted, fmt.Errorf("failed to shift balance of entry %d: %w", e.ID, err)
			}
			shifted++
		}

		if len(page) < m.pageSize {
			return shifted, nil
		}
	}
}

func (m *Maintainer) lock(ctx context.Context, propertyID uuid.UUID) (func(), error) {
	if m.locker == nil {
		return func() {}, nil
	}
	unlock, err := m.locker.Lock(ctx, propertyID)
	if err != nil {
		return nil, domainerror.NewLedgerError(
			domainerror.ErrCodeLockNotObtained,
			fmt.Sprintf("could not lock property %s", propertyID),
			err,
		)
	}
	return unlock, nil
}

func orderingError(propertyID uuid.UUID, sequence, found int64) error {
	return domainerror.NewLedgerError(
		domainerror.ErrCodeBalanceOrdering,
		fmt.Sprintf("property %s: entry %d found out of order relative to %d", propertyID, found, sequence),
		domainerror.ErrBalanceOrdering,
	)
}
