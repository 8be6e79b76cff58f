package dto

import (
	"time"

	"github.com/propertyledger/backend/internal/application/usecase/ledger"
	"github.com/propertyledger/backend/internal/domain/entity"
)

// DateLayout is the wire format of ledger and accounting dates.
const DateLayout = "2006-01-02"

// CreateEntryRequest represents the request body for creating a ledger entry.
type CreateEntryRequest struct {
	Kind           string `json:"kind" binding:"required,oneof=income expense deposit withdrawal"`
	Amount         string `json:"amount" binding:"required"`
	LedgerDate     string `json:"ledger_date" binding:"required"`
	AccountingDate string `json:"accounting_date,omitempty"`
	Description    string `json:"description,omitempty" binding:"omitempty,max=500"`
	ParentID       *int64 `json:"parent_id,omitempty"`
}

// UpdateEntryRequest represents the request body for updating a ledger entry.
type UpdateEntryRequest struct {
	Amount         *string `json:"amount,omitempty"`
	LedgerDate     *string `json:"ledger_date,omitempty"`
	AccountingDate *string `json:"accounting_date,omitempty"`
	Description    *string `json:"description,omitempty" binding:"omitempty,max=500"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID             int64  `json:"id"`
	PropertyID     string `json:"property_id"`
	ParentID       *int64 `json:"parent_id,omitempty"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
	Balance        string `json:"balance,omitempty"`
	LedgerDate     string `json:"ledger_date"`
	AccountingDate string `json:"accounting_date"`
	Description    string `json:"description,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// ToEntryResponse converts a ledger use case output to an EntryResponse DTO.
// The balance is only reported for accepted entries.
func ToEntryResponse(e *ledger.EntryOutput) EntryResponse {
	response := EntryResponse{
		ID:             e.ID,
		PropertyID:     e.PropertyID.String(),
		ParentID:       e.ParentID,
		Kind:           string(e.Kind),
		Status:         string(e.Status),
		Amount:         e.Amount.StringFixed(entity.AmountDecimals),
		LedgerDate:     e.LedgerDate.Format(DateLayout),
		AccountingDate: e.AccountingDate.Format(DateLayout),
		Description:    e.Description,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.Status == entity.EntryStatusAccepted {
		response.Balance = e.Balance.StringFixed(entity.AmountDecimals)
	}
	return response
}
