// Package events routes ledger events to the balance maintainer and the rollup aggregator.
package events

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// BalanceListener reacts to changes that move running balances.
// Calls for one property must not overlap.
type BalanceListener interface {
	OnAccepted(ctx context.Context, entry *entity.LedgerEntry) error
	OnAmountChanged(ctx context.Context, entry *entity.LedgerEntry, oldAmount decimal.Decimal) error
	OnDeleted(ctx context.Context, entry *entity.LedgerEntry) error
}

// RollupListener reacts to changes of rollup contributions. Calls commute and
// may run in any order, but each event must reach it once.
type RollupListener interface {
	OnEntryAccepted(ctx context.Context, entry *entity.LedgerEntry) error
	OnEntryDeleted(ctx context.Context, entry *entity.LedgerEntry) error
	OnAmountChanged(ctx context.Context, entry *entity.LedgerEntry, oldAmount decimal.Decimal) error
	OnDatesChanged(ctx context.Context, event *entity.LedgerEvent) error
	OnEntryAmended(ctx context.Context, event *entity.LedgerEvent) error
}

// Listener names used in deduplication keys and logs.
const (
	ListenerBalance = "balance"
	ListenerRollup  = "rollup"
)

// needsBalance reports whether the event changes any running balance.
func needsBalance(event *entity.LedgerEvent) bool {
	switch event.Type {
	case entity.EventEntryAccepted, entity.EventEntryDeleted, entity.EventEntryAmountChanged:
		return true
	case entity.EventEntryAmended:
		return event.AmountChanged()
	}
	return false
}

// needsRollup reports whether the event changes any rollup bucket.
func needsRollup(event *entity.LedgerEvent) bool {
	switch event.Type {
	case entity.EventEntryAccepted, entity.EventEntryDeleted, entity.EventEntryAmountChanged,
		entity.EventEntryDateChanged, entity.EventEntryAmended:
		return true
	}
	return false
}

func applyBalance(ctx context.Context, l BalanceListener, event *entity.LedgerEvent) error {
	entry := event.Entry()
	switch event.Type {
	case entity.EventEntryAccepted:
		return l.OnAccepted(ctx, entry)
	case entity.EventEntryDeleted:
		return l.OnDeleted(ctx, entry)
	case entity.EventEntryAmountChanged, entity.EventEntryAmended:
		return l.OnAmountChanged(ctx, entry, event.PreviousAmount())
	}
	return nil
}

func applyRollup(ctx context.Context, l RollupListener, event *entity.LedgerEvent) error {
	entry := event.Entry()
	switch event.Type {
	case entity.EventEntryAccepted:
		return l.OnEntryAccepted(ctx, entry)
	case entity.EventEntryDeleted:
		return l.OnEntryDeleted(ctx, entry)
	case entity.EventEntryAmountChanged:
		return l.OnAmountChanged(ctx, entry, event.PreviousAmount())
	case entity.EventEntryDateChanged:
		return l.OnDatesChanged(ctx, event)
	case entity.EventEntryAmended:
		return l.OnEntryAmended(ctx, event)
	}
	return nil
}
