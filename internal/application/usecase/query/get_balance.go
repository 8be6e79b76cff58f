// Package query contains the ownership-checked read paths over the derived views.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/application/adapter"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// BalanceReader returns the stored running balance of a property.
type BalanceReader interface {
	GetBalance(ctx context.Context, propertyID uuid.UUID) (decimal.Decimal, error)
}

// GetBalanceInput represents the input for a balance read.
type GetBalanceInput struct {
	UserID     uuid.UUID
	PropertyID uuid.UUID
}

// GetBalanceOutput represents the output of a balance read.
type GetBalanceOutput struct {
	PropertyID uuid.UUID
	Balance    decimal.Decimal
}

// GetBalanceUseCase reads the current balance of a property owned by the caller.
type GetBalanceUseCase struct {
	owners  adapter.OwnershipChecker
	balance BalanceReader
}

// NewGetBalanceUseCase creates a new GetBalanceUseCase instance.
func NewGetBalanceUseCase(owners adapter.OwnershipChecker, balance BalanceReader) *GetBalanceUseCase {
	return &GetBalanceUseCase{
		owners:  owners,
		balance: balance,
	}
}

// Execute performs the balance read.
func (uc *GetBalanceUseCase) Execute(ctx context.Context, input GetBalanceInput) (*GetBalanceOutput, error) {
	if err := checkOwner(ctx, uc.owners, input.UserID, input.PropertyID); err != nil {
		return nil, err
	}

	balance, err := uc.balance.GetBalance(ctx, input.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	return &GetBalanceOutput{
		PropertyID: input.PropertyID,
		Balance:    balance,
	}, nil
}

func checkOwner(ctx context.Context, owners adapter.OwnershipChecker, userID, propertyID uuid.UUID) error {
	ok, err := owners.IsOwner(ctx, userID, propertyID)
	if err != nil {
		if errors.Is(err, domainerror.ErrPropertyNotFound) {
			return domainerror.NewPropertyError(
				domainerror.ErrCodePropertyNotFound,
				"property not found",
				domainerror.ErrPropertyNotFound,
			)
		}
		return fmt.Errorf("failed to check property ownership: %w", err)
	}
	if !ok {
		return domainerror.NewPropertyError(
			domainerror.ErrCodeNotPropertyOwner,
			"not authorized to access this property",
			domainerror.ErrNotPropertyOwner,
		)
	}
	return nil
}
