package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEventType names a change in a ledger entry's contribution.
type LedgerEventType string

const (
	EventEntryCreated       LedgerEventType = "entry.created"
	EventEntryAccepted      LedgerEventType = "entry.accepted"
	EventEntryDeleted       LedgerEventType = "entry.deleted"
	EventEntryAmountChanged LedgerEventType = "entry.amount_changed"
	EventEntryDateChanged   LedgerEventType = "entry.date_changed"
	EventEntryAmended       LedgerEventType = "entry.amended"
)

// LedgerEvent carries a snapshot of an entry after the change, plus the old
// values for change events. It is the unit delivered to the maintainers.
type LedgerEvent struct {
	ID             uuid.UUID       `json:"id"`
	Type           LedgerEventType `json:"type"`
	EntryID        int64           `json:"entry_id"`
	PropertyID     uuid.UUID       `json:"property_id"`
	Kind           EntryKind       `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	LedgerDate     time.Time       `json:"ledger_date"`
	AccountingDate time.Time       `json:"accounting_date"`
	Standalone     bool            `json:"standalone"`

	OldAmount         *decimal.Decimal `json:"old_amount,omitempty"`
	OldLedgerDate     *time.Time       `json:"old_ledger_date,omitempty"`
	OldAccountingDate *time.Time       `json:"old_accounting_date,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewLedgerEvent snapshots entry into a new event of the given type.
func NewLedgerEvent(eventType LedgerEventType, entry *LedgerEntry) *LedgerEvent {
	return &LedgerEvent{
		ID:             uuid.New(),
		Type:           eventType,
		EntryID:        entry.ID,
		PropertyID:     entry.PropertyID,
		Kind:           entry.Kind,
		Amount:         entry.Amount,
		LedgerDate:     entry.LedgerDate,
		AccountingDate: entry.AccountingDate,
		Standalone:     entry.IsStandalone(),
		OccurredAt:     time.Now().UTC(),
	}
}

// Entry rebuilds the accepted entry snapshot the event describes.
func (e *LedgerEvent) Entry() *LedgerEntry {
	return &LedgerEntry{
		ID:             e.EntryID,
		PropertyID:     e.PropertyID,
		Kind:           e.Kind,
		Status:         EntryStatusAccepted,
		Amount:         e.Amount,
		LedgerDate:     e.LedgerDate,
		AccountingDate: e.AccountingDate,
	}
}

// PreviousAmount returns the amount before the change, or the current amount when unchanged.
func (e *LedgerEvent) PreviousAmount() decimal.Decimal {
	if e.OldAmount != nil {
		return *e.OldAmount
	}
	return e.Amount
}

// PreviousLedgerDate returns the ledger date before the change.
func (e *LedgerEvent) PreviousLedgerDate() time.Time {
	if e.OldLedgerDate != nil {
		return *e.OldLedgerDate
	}
	return e.LedgerDate
}

// PreviousAccountingDate returns the accounting date before the change.
func (e *LedgerEvent) PreviousAccountingDate() time.Time {
	if e.OldAccountingDate != nil {
		return *e.OldAccountingDate
	}
	return e.AccountingDate
}

// PreviousRelevantDate returns the pre-change date used to bucket the given kind.
func (e *LedgerEvent) PreviousRelevantDate(kind StatisticKind) time.Time {
	if kind.UsesAccountingDate() {
		return e.PreviousAccountingDate()
	}
	return e.PreviousLedgerDate()
}

// AmountChanged reports whether the event carries an amount change.
func (e *LedgerEvent) AmountChanged() bool {
	return e.OldAmount != nil && !e.OldAmount.Equal(e.Amount)
}
