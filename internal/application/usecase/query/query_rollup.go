package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/application/usecase/rollup"
	"github.com/propertyledger/backend/internal/domain/entity"
)

// RollupReader returns stored rollup buckets.
type RollupReader interface {
	Query(ctx context.Context, q rollup.Query) ([]*entity.RollupRecord, error)
}

// QueryRollupInput represents the input for a rollup read.
type QueryRollupInput struct {
	UserID     uuid.UUID
	PropertyID uuid.UUID
	Kind       *entity.StatisticKind
	Year       *int
	Month      *int
}

// QueryRollupOutput represents the output of a rollup read.
// With a kind set, Records holds exactly one record.
type QueryRollupOutput struct {
	Records []*entity.RollupRecord
}

// QueryRollupUseCase reads rollup buckets of a property owned by the caller.
type QueryRollupUseCase struct {
	owners  adapter.OwnershipChecker
	rollups RollupReader
}

// NewQueryRollupUseCase creates a new QueryRollupUseCase instance.
func NewQueryRollupUseCase(owners adapter.OwnershipChecker, rollups RollupReader) *QueryRollupUseCase {
	return &QueryRollupUseCase{
		owners:  owners,
		rollups: rollups,
	}
}

// Execute performs the rollup read.
func (uc *QueryRollupUseCase) Execute(ctx context.Context, input QueryRollupInput) (*QueryRollupOutput, error) {
	if err := checkOwner(ctx, uc.owners, input.UserID, input.PropertyID); err != nil {
		return nil, err
	}

	records, err := uc.rollups.Query(ctx, rollup.Query{
		PropertyID: input.PropertyID,
		Kind:       input.Kind,
		Year:       input.Year,
		Month:      input.Month,
	})
	if err != nil {
		return nil, err
	}

	return &QueryRollupOutput{Records: records}, nil
}
