// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// LedgerEntryModel represents the ledger_entries table in the database.
// The auto-increment ID is the sequence balances are ordered by.
type LedgerEntryModel struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	PropertyID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_entries_property_status_id,priority:1"`
	ParentID       *int64          `gorm:"index"`
	Kind           string          `gorm:"type:varchar(16);not null"`
	Status         string          `gorm:"type:varchar(16);not null;index:idx_ledger_entries_property_status_id,priority:2"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Balance        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	BalanceApplied bool            `gorm:"not null;default:false"`
	LedgerDate     time.Time       `gorm:"type:date;not null"`
	AccountingDate time.Time       `gorm:"type:date;not null"`
	Description    string          `gorm:"type:varchar(500)"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

// TableName returns the table name for the LedgerEntryModel.
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToEntity converts a LedgerEntryModel to a domain LedgerEntry entity.
func (m *LedgerEntryModel) ToEntity() *entity.LedgerEntry {
	var deletedAt *time.Time
	if m.DeletedAt.Valid {
		deletedAt = &m.DeletedAt.Time
	}

	return &entity.LedgerEntry{
		ID:             m.ID,
		PropertyID:     m.PropertyID,
		ParentID:       m.ParentID,
		Kind:           entity.EntryKind(m.Kind),
		Status:         entity.EntryStatus(m.Status),
		Amount:         m.Amount.Round(entity.AmountDecimals),
		Balance:        m.Balance.Round(entity.AmountDecimals),
		BalanceApplied: m.BalanceApplied,
		LedgerDate:     m.LedgerDate,
		AccountingDate: m.AccountingDate,
		Description:    m.Description,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DeletedAt:      deletedAt,
	}
}

// LedgerEntryFromEntity converts a domain LedgerEntry entity to a LedgerEntryModel.
func LedgerEntryFromEntity(e *entity.LedgerEntry) *LedgerEntryModel {
	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	}

	return &LedgerEntryModel{
		ID:             e.ID,
		PropertyID:     e.PropertyID,
		ParentID:       e.ParentID,
		Kind:           string(e.Kind),
		Status:         string(e.Status),
		Amount:         e.Amount,
		Balance:        e.Balance,
		BalanceApplied: e.BalanceApplied,
		LedgerDate:     e.LedgerDate,
		AccountingDate: e.AccountingDate,
		Description:    e.Description,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		DeletedAt:      deletedAt,
	}
}
