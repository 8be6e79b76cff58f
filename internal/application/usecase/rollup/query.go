package rollup

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// Query selects one bucket level of a property. A nil Year selects the all-time
// level, a nil Month with a Year the yearly level. A nil Kind selects every kind.
type Query struct {
	PropertyID uuid.UUID
	Kind       *entity.StatisticKind
	Year       *int
	Month      *int
}

// Query returns the stored records for the selected bucket level.
// When a kind is given the result always holds exactly one record, zero-valued
// when no row exists yet. Without a kind, missing rows are simply absent.
func (a *Aggregator) Query(ctx context.Context, q Query) ([]*entity.RollupRecord, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	if q.Kind != nil {
		key := entity.BucketKey{PropertyID: q.PropertyID, Kind: *q.Kind, Year: q.Year, Month: q.Month}
		record, err := a.rollups.Find(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read bucket %s: %w", key, err)
		}
		if record == nil {
			record = entity.ZeroRollup(key)
		}
		return []*entity.RollupRecord{record}, nil
	}

	records, err := a.rollups.List(ctx, entity.RollupFilter{
		PropertyID: q.PropertyID,
		Year:       q.Year,
		Month:      q.Month,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rollups of property %s: %w", q.PropertyID, err)
	}
	if records == nil {
		records = []*entity.RollupRecord{}
	}
	return records, nil
}

func validateQuery(q Query) error {
	if q.Kind != nil && !q.Kind.IsValid() {
		return domainerror.NewRollupError(
			domainerror.ErrCodeInvalidStatisticKind,
			fmt.Sprintf("unknown statistic kind %q", *q.Kind),
			domainerror.ErrInvalidStatisticKind,
		)
	}
	if q.Month != nil && q.Year == nil {
		return domainerror.NewRollupError(
			domainerror.ErrCodeInvalidBucket,
			"month requires a year",
			domainerror.ErrInvalidBucket,
		)
	}
	if q.Month != nil && (*q.Month < 1 || *q.Month > 12) {
		return domainerror.NewRollupError(
			domainerror.ErrCodeInvalidBucket,
			fmt.Sprintf("month %d out of range", *q.Month),
			domainerror.ErrInvalidBucket,
		)
	}
	return nil
}
