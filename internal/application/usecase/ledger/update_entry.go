package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// UpdateEntryInput represents the input for entry update.
type UpdateEntryInput struct {
	UserID         uuid.UUID
	EntryID        int64
	Amount         *decimal.Decimal
	LedgerDate     *time.Time
	AccountingDate *time.Time
	Description    *string
}

// UpdateEntryOutput represents the output of entry update.
type UpdateEntryOutput struct {
	Entry *EntryOutput
	Event *entity.LedgerEvent // Nil when the edit needs no maintenance
}

// UpdateEntryUseCase edits an entry. Editing a pending entry is free; editing
// the amount or a date of an accepted entry emits one change event carrying
// the old values.
type UpdateEntryUseCase struct {
	entries   adapter.LedgerEntryRepository
	owners    adapter.OwnershipChecker
	locker    adapter.PropertyLocker
	publisher adapter.EventPublisher
}

// NewUpdateEntryUseCase creates a new UpdateEntryUseCase instance.
func NewUpdateEntryUseCase(
	entries adapter.LedgerEntryRepository,
	owners adapter.OwnershipChecker,
	locker adapter.PropertyLocker,
	publisher adapter.EventPublisher,
) *UpdateEntryUseCase {
	return &UpdateEntryUseCase{
		entries:   entries,
		owners:    owners,
		locker:    locker,
		publisher: publisher,
	}
}

// Execute performs the entry update.
func (uc *UpdateEntryUseCase) Execute(ctx context.Context, input UpdateEntryInput) (*UpdateEntryOutput, error) {
	entry, unlock, err := lockOwnedEntry(ctx, uc.entries, uc.owners, uc.locker, input.UserID, input.EntryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	oldAmount := entry.Amount
	oldLedgerDate := entry.LedgerDate
	oldAccountingDate := entry.AccountingDate

	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		entry.Amount = input.Amount.Round(entity.AmountDecimals)
	}
	if input.LedgerDate != nil && !input.LedgerDate.IsZero() {
		entry.LedgerDate = *input.LedgerDate
	}
	if input.AccountingDate != nil && !input.AccountingDate.IsZero() {
		entry.AccountingDate = *input.AccountingDate
	}
	if input.Description != nil {
		if err := validateDescription(*input.Description); err != nil {
			return nil, err
		}
		entry.Description = *input.Description
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := uc.entries.Update(ctx, entry); err != nil {
		if errors.Is(err, domainerror.ErrEntryNotFound) {
			return nil, entryNotFound()
		}
		return nil, fmt.Errorf("failed to update ledger entry: %w", err)
	}

	output := &UpdateEntryOutput{Entry: toEntryOutput(entry)}
	if !entry.IsAccepted() {
		return output, nil
	}

	amountChanged := !entry.Amount.Equal(oldAmount)
	datesChanged := !entry.LedgerDate.Equal(oldLedgerDate) || !entry.AccountingDate.Equal(oldAccountingDate)

	var event *entity.LedgerEvent
	switch {
	case amountChanged && datesChanged:
		event = entity.NewLedgerEvent(entity.EventEntryAmended, entry)
	case amountChanged:
		event = entity.NewLedgerEvent(entity.EventEntryAmountChanged, entry)
	case datesChanged:
		event = entity.NewLedgerEvent(entity.EventEntryDateChanged, entry)
	default:
		return output, nil
	}
	if amountChanged {
		event.OldAmount = &oldAmount
	}
	if datesChanged {
		event.OldLedgerDate = &oldLedgerDate
		event.OldAccountingDate = &oldAccountingDate
	}

	if err := publish(ctx, uc.publisher, event); err != nil {
		return nil, err
	}
	output.Event = event
	return output, nil
}
