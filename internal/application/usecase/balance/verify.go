package balance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// Verify walks the accepted entries of a property in sequence order and returns
// a drift error naming the first entry whose stored balance is not the running sum.
func (m *Maintainer) Verify(ctx context.Context, propertyID uuid.UUID) error {
	running := decimal.Zero
	return m.walk(ctx, propertyID, func(e *entity.LedgerEntry) error {
		running = running.Add(e.Amount)
		if !e.BalanceApplied || !e.Balance.Equal(running) {
			return domainerror.NewLedgerError(
				domainerror.ErrCodeBalanceDrift,
				fmt.Sprintf("property %s: entry %d stores %s, running sum is %s",
					propertyID, e.ID,
					e.Balance.StringFixed(entity.AmountDecimals),
					running.StringFixed(entity.AmountDecimals)),
				domainerror.ErrBalanceDrift,
			)
		}
		return nil
	})
}

// Rebuild rewrites every stored balance of a property from the running sum.
// It is the repair path for balances and returns the number of rows corrected.
func (m *Maintainer) Rebuild(ctx context.Context, propertyID uuid.UUID) (int, error) {
	unlock, err := m.lock(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	corrected := 0
	running := decimal.Zero
	err = m.walk(ctx, propertyID, func(e *entity.LedgerEntry) error {
		running = running.Add(e.Amount)
		if e.BalanceApplied && e.Balance.Equal(running) {
			return nil
		}
		if err := m.entries.UpdateBalance(ctx, e.ID, running); err != nil {
			return fmt.Errorf("failed to rebuild balance of entry %d: %w", e.ID, err)
		}
		corrected++
		return nil
	})
	return corrected, err
}

func (m *Maintainer) walk(ctx context.Context, propertyID uuid.UUID, visit func(*entity.LedgerEntry) error) error {
	var cursor int64
	for {
		page, err := m.entries.ListAcceptedAfter(ctx, propertyID, cursor, m.pageSize)
		if err != nil {
			return fmt.Errorf("failed to list entries after %d: %w", cursor, err)
		}
		for _, e := range page {
			if e.ID <= cursor {
				return orderingError(propertyID, cursor, e.ID)
			}
			if err := visit(e); err != nil {
				return err
			}
			cursor = e.ID
		}
		if len(page) < m.pageSize {
			return nil
		}
	}
}
