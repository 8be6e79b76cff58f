// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind represents the accounting nature of a ledger entry.
type EntryKind string

const (
	EntryKindIncome     EntryKind = "income"
	EntryKindExpense    EntryKind = "expense"
	EntryKindDeposit    EntryKind = "deposit"
	EntryKindWithdrawal EntryKind = "withdrawal"
)

// IsValid reports whether the kind is one of the known entry kinds.
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryKindIncome, EntryKindExpense, EntryKindDeposit, EntryKindWithdrawal:
		return true
	}
	return false
}

// EntryStatus represents the lifecycle status of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "pending"
	EntryStatusAccepted EntryStatus = "accepted"
)

// AmountDecimals is the fixed-point precision of every stored amount.
const AmountDecimals = 2

// LedgerEntry represents one accounting record of a property.
// ID is the monotonically increasing sequence used to order balances.
type LedgerEntry struct {
	ID             int64
	PropertyID     uuid.UUID
	ParentID       *int64 // Set when the entry is a split of another ledger entry
	Kind           EntryKind
	Status         EntryStatus
	Amount         decimal.Decimal // Negative for expenses and withdrawals
	Balance        decimal.Decimal // Only meaningful when BalanceApplied is set
	BalanceApplied bool            // Set once the balance maintainer has placed the entry in the running sum
	LedgerDate     time.Time
	AccountingDate time.Time
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// NewLedgerEntry creates a pending ledger entry. The amount keeps its sign so that
// corrections (a negative income, a positive expense refund) are expressible.
func NewLedgerEntry(
	propertyID uuid.UUID,
	kind EntryKind,
	amount decimal.Decimal,
	ledgerDate time.Time,
	accountingDate time.Time,
	description string,
	parentID *int64,
) *LedgerEntry {
	now := time.Now().UTC()

	return &LedgerEntry{
		PropertyID:     propertyID,
		ParentID:       parentID,
		Kind:           kind,
		Status:         EntryStatusPending,
		Amount:         amount.Round(AmountDecimals),
		Balance:        decimal.Zero,
		LedgerDate:     ledgerDate,
		AccountingDate: accountingDate,
		Description:    description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsAccepted reports whether the entry contributes to balances and rollups.
func (e *LedgerEntry) IsAccepted() bool {
	return e.Status == EntryStatusAccepted
}

// IsDeleted reports whether the entry has been soft-deleted.
func (e *LedgerEntry) IsDeleted() bool {
	return e.DeletedAt != nil
}

// IsStandalone reports whether the entry is not linked to a parent ledger entry.
func (e *LedgerEntry) IsStandalone() bool {
	return e.ParentID == nil
}

// Accept transitions the entry from pending to accepted.
// It returns false when the entry was not pending.
func (e *LedgerEntry) Accept() bool {
	if e.Status != EntryStatusPending {
		return false
	}
	e.Status = EntryStatusAccepted
	e.UpdatedAt = time.Now().UTC()
	return true
}

// RelevantDate returns the date used to bucket the entry for the given statistic kind.
func (e *LedgerEntry) RelevantDate(kind StatisticKind) time.Time {
	if kind.UsesAccountingDate() {
		return e.AccountingDate
	}
	return e.LedgerDate
}
