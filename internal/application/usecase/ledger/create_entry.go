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

// CreateEntryInput represents the input for entry creation.
type CreateEntryInput struct {
	UserID         uuid.UUID
	PropertyID     uuid.UUID
	Kind           entity.EntryKind
	Amount         decimal.Decimal
	LedgerDate     time.Time
	AccountingDate *time.Time // Defaults to LedgerDate
	Description    string
	ParentID       *int64
}

// CreateEntryOutput represents the output of entry creation.
type CreateEntryOutput struct {
	Entry *EntryOutput
}

// CreateEntryUseCase records a new pending ledger entry.
type CreateEntryUseCase struct {
	entries   adapter.LedgerEntryRepository
	owners    adapter.OwnershipChecker
	publisher adapter.EventPublisher
}

// NewCreateEntryUseCase creates a new CreateEntryUseCase instance.
func NewCreateEntryUseCase(
	entries adapter.LedgerEntryRepository,
	owners adapter.OwnershipChecker,
	publisher adapter.EventPublisher,
) *CreateEntryUseCase {
	return &CreateEntryUseCase{
		entries:   entries,
		owners:    owners,
		publisher: publisher,
	}
}

// Execute performs the entry creation.
func (uc *CreateEntryUseCase) Execute(ctx context.Context, input CreateEntryInput) (*CreateEntryOutput, error) {
	if !input.Kind.IsValid() {
		return nil, domainerror.NewLedgerError(
			domainerror.ErrCodeInvalidEntryKind,
			"kind must be one of income, expense, deposit, withdrawal",
			domainerror.ErrInvalidEntryKind,
		)
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.LedgerDate.IsZero() {
		return nil, domainerror.NewLedgerError(
			domainerror.ErrCodeInvalidEntryDate,
			"ledger date is required",
			domainerror.ErrInvalidEntryDate,
		)
	}
	accountingDate := input.LedgerDate
	if input.AccountingDate != nil && !input.AccountingDate.IsZero() {
		accountingDate = *input.AccountingDate
	}

	if err := checkOwner(ctx, uc.owners, input.UserID, input.PropertyID); err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		parent, err := uc.entries.FindByID(ctx, *input.ParentID)
		if err != nil && !errors.Is(err, domainerror.ErrEntryNotFound) {
			return nil, fmt.Errorf("failed to find parent entry: %w", err)
		}
		if parent == nil || parent.PropertyID != input.PropertyID {
			return nil, domainerror.NewLedgerError(
				domainerror.ErrCodeParentNotFound,
				"parent entry not found",
				domainerror.ErrParentNotFound,
			)
		}
	}

	entry := entity.NewLedgerEntry(
		input.PropertyID,
		input.Kind,
		input.Amount,
		input.LedgerDate,
		accountingDate,
		input.Description,
		input.ParentID,
	)
	if err := uc.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}

	if err := publish(ctx, uc.publisher, entity.NewLedgerEvent(entity.EventEntryCreated, entry)); err != nil {
		return nil, err
	}

	return &CreateEntryOutput{Entry: toEntryOutput(entry)}, nil
}
