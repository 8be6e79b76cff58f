// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// RollupRepository defines the persistence operations on rollup records.
type RollupRepository interface {
	// UpsertAdd inserts the bucket with delta, or adds delta to the stored value,
	// in a single atomic statement.
	UpsertAdd(ctx context.Context, key entity.BucketKey, delta decimal.Decimal) error

	// Put stores the given values, replacing any existing value for the same bucket.
	Put(ctx context.Context, records []*entity.RollupRecord) error

	// Find returns the stored record for a bucket, or nil when no row exists.
	Find(ctx context.Context, key entity.BucketKey) (*entity.RollupRecord, error)

	// List returns the records matching the filter ordered by kind, year and month.
	List(ctx context.Context, filter entity.RollupFilter) ([]*entity.RollupRecord, error)

	// ListByProperty returns every record of the given kinds for a property, at all levels.
	ListByProperty(ctx context.Context, propertyID uuid.UUID, kinds []entity.StatisticKind) ([]*entity.RollupRecord, error)

	// DeleteKinds removes every record of the given kinds, for one property or
	// for all properties when propertyID is nil. Returns the number of rows removed.
	DeleteKinds(ctx context.Context, propertyID *uuid.UUID, kinds []entity.StatisticKind) (int64, error)
}
