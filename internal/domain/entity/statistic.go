package entity

import "github.com/shopspring/decimal"

// StatisticKind identifies one of the aggregated series kept per property.
type StatisticKind string

const (
	StatisticBalance  StatisticKind = "BALANCE"
	StatisticIncome   StatisticKind = "INCOME"
	StatisticExpense  StatisticKind = "EXPENSE"
	StatisticDeposit  StatisticKind = "DEPOSIT"
	StatisticWithdraw StatisticKind = "WITHDRAW"
)

// ReconciledKinds are the statistic kinds rebuilt from source rows by reconciliation.
// BALANCE is order dependent and excluded.
var ReconciledKinds = []StatisticKind{
	StatisticIncome,
	StatisticExpense,
	StatisticDeposit,
	StatisticWithdraw,
}

// AllStatisticKinds lists every statistic kind.
var AllStatisticKinds = []StatisticKind{
	StatisticBalance,
	StatisticIncome,
	StatisticExpense,
	StatisticDeposit,
	StatisticWithdraw,
}

// IsValid reports whether the kind is a known statistic kind.
func (k StatisticKind) IsValid() bool {
	switch k {
	case StatisticBalance, StatisticIncome, StatisticExpense, StatisticDeposit, StatisticWithdraw:
		return true
	}
	return false
}

// UsesAccountingDate reports whether buckets of this kind are keyed by accounting date.
// BALANCE, DEPOSIT and WITHDRAW use the ledger date.
func (k StatisticKind) UsesAccountingDate() bool {
	return k == StatisticIncome || k == StatisticExpense
}

// StoresMagnitude reports whether the kind stores the negated signed amount.
func (k StatisticKind) StoresMagnitude() bool {
	return k == StatisticExpense || k == StatisticWithdraw
}

// Contribution converts a signed entry amount into the delta stored for this kind.
func (k StatisticKind) Contribution(amount decimal.Decimal) decimal.Decimal {
	if k.StoresMagnitude() {
		return amount.Neg()
	}
	return amount
}

// StatisticKindsFor returns the statistic kinds an entry of the given kind contributes to.
// Every entry contributes its signed amount to BALANCE.
func StatisticKindsFor(kind EntryKind) []StatisticKind {
	switch kind {
	case EntryKindIncome:
		return []StatisticKind{StatisticIncome, StatisticBalance}
	case EntryKindExpense:
		return []StatisticKind{StatisticExpense, StatisticBalance}
	case EntryKindDeposit:
		return []StatisticKind{StatisticDeposit, StatisticBalance}
	case EntryKindWithdrawal:
		return []StatisticKind{StatisticWithdraw, StatisticBalance}
	}
	return nil
}

// EntryKindFor returns the entry kind feeding a reconciled statistic kind.
func EntryKindFor(kind StatisticKind) (EntryKind, bool) {
	switch kind {
	case StatisticIncome:
		return EntryKindIncome, true
	case StatisticExpense:
		return EntryKindExpense, true
	case StatisticDeposit:
		return EntryKindDeposit, true
	case StatisticWithdraw:
		return EntryKindWithdrawal, true
	}
	return "", false
}
