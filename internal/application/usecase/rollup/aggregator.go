// Package rollup maintains the all-time, yearly and monthly statistic buckets
// of each property by applying commutative deltas.
package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
)

// Aggregator applies entry contributions to rollup buckets. Deltas commute, so
// no ordering or locking is needed beyond the store's atomic upsert-add.
// Deltas are not deduplicated here: each logical change must reach the
// aggregator exactly once.
type Aggregator struct {
	rollups adapter.RollupRepository
}

// NewAggregator creates a new rollup aggregator.
func NewAggregator(rollups adapter.RollupRepository) *Aggregator {
	return &Aggregator{
		rollups: rollups,
	}
}

// ApplyDelta adds delta, rounded to two decimals, to the all-time, yearly and
// monthly buckets of kind that date falls in.
func (a *Aggregator) ApplyDelta(ctx context.Context, propertyID uuid.UUID, kind entity.StatisticKind, date time.Time, delta decimal.Decimal) error {
	delta = delta.Round(entity.AmountDecimals)
	if delta.IsZero() {
		return nil
	}
	for _, key := range entity.BucketsForDate(propertyID, kind, date) {
		if err := a.upsert(ctx, key, delta); err != nil {
			return err
		}
	}
	return nil
}

// OnEntryAccepted adds the entry's contribution to each kind it feeds.
func (a *Aggregator) OnEntryAccepted(ctx context.Context, entry *entity.LedgerEntry) error {
	for _, kind := range entity.StatisticKindsFor(entry.Kind) {
		if err := a.ApplyDelta(ctx, entry.PropertyID, kind, entry.RelevantDate(kind), kind.Contribution(entry.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// OnEntryDeleted removes the entry's contribution from each kind it feeds.
func (a *Aggregator) OnEntryDeleted(ctx context.Context, entry *entity.LedgerEntry) error {
	for _, kind := range entity.StatisticKindsFor(entry.Kind) {
		if err := a.ApplyDelta(ctx, entry.PropertyID, kind, entry.RelevantDate(kind), kind.Contribution(entry.Amount).Neg()); err != nil {
			return err
		}
	}
	return nil
}

// OnAmountChanged applies the amount difference, at the entry's current dates,
// to each kind it feeds.
func (a *Aggregator) OnAmountChanged(ctx context.Context, entry *entity.LedgerEntry, oldAmount decimal.Decimal) error {
	for _, kind := range entity.StatisticKindsFor(entry.Kind) {
		delta := kind.Contribution(entry.Amount).Sub(kind.Contribution(oldAmount))
		if err := a.ApplyDelta(ctx, entry.PropertyID, kind, entry.RelevantDate(kind), delta); err != nil {
			return err
		}
	}
	return nil
}

// OnRelevantDateChanged moves the entry's contribution to kind from the buckets
// of oldDate to the buckets of the entry's current relevant date.
func (a *Aggregator) OnRelevantDateChanged(ctx context.Context, entry *entity.LedgerEntry, kind entity.StatisticKind, oldDate time.Time) error {
	contribution := kind.Contribution(entry.Amount)
	return a.move(ctx, entry.PropertyID, kind, oldDate, contribution, entry.RelevantDate(kind), contribution)
}

// OnAmountOrDateStandaloneChange handles an edit of both the amount and the
// relevant date of an entry that has no accepted parent.
func (a *Aggregator) OnAmountOrDateStandaloneChange(ctx context.Context, entry *entity.LedgerEntry, kind entity.StatisticKind, oldAmount decimal.Decimal, oldDate time.Time) error {
	return a.move(ctx, entry.PropertyID, kind, oldDate, kind.Contribution(oldAmount), entry.RelevantDate(kind), kind.Contribution(entry.Amount))
}

// OnDatesChanged moves every kind whose relevant date differs in the event.
func (a *Aggregator) OnDatesChanged(ctx context.Context, event *entity.LedgerEvent) error {
	entry := event.Entry()
	for _, kind := range entity.StatisticKindsFor(entry.Kind) {
		oldDate := event.PreviousRelevantDate(kind)
		if oldDate.Equal(entry.RelevantDate(kind)) {
			continue
		}
		if err := a.OnRelevantDateChanged(ctx, entry, kind, oldDate); err != nil {
			return err
		}
	}
	return nil
}

// OnEntryAmended handles a combined amount and date edit for every kind the entry feeds.
func (a *Aggregator) OnEntryAmended(ctx context.Context, event *entity.LedgerEvent) error {
	entry := event.Entry()
	for _, kind := range entity.StatisticKindsFor(entry.Kind) {
		if err := a.OnAmountOrDateStandaloneChange(ctx, entry, kind, event.PreviousAmount(), event.PreviousRelevantDate(kind)); err != nil {
			return err
		}
	}
	return nil
}

// move replaces oldValue in the buckets of oldDate by newValue in the buckets of
// newDate. Year and month are compared separately: a bucket that does not move
// receives the difference, a bucket that moves loses oldValue to its successor.
// The all-time bucket is date independent.
func (a *Aggregator) move(
	ctx context.Context,
	propertyID uuid.UUID,
	kind entity.StatisticKind,
	oldDate time.Time,
	oldValue decimal.Decimal,
	newDate time.Time,
	newValue decimal.Decimal,
) error {
	oldValue = oldValue.Round(entity.AmountDecimals)
	newValue = newValue.Round(entity.AmountDecimals)
	diff := newValue.Sub(oldValue)

	oldYear, oldMonth := oldDate.Year(), int(oldDate.Month())
	newYear, newMonth := newDate.Year(), int(newDate.Month())

	deltas := []bucketDelta{
		{entity.AllTimeBucket(propertyID, kind), diff},
	}

	if oldYear != newYear {
		deltas = append(deltas,
			bucketDelta{entity.YearBucket(propertyID, kind, oldYear), oldValue.Neg()},
			bucketDelta{entity.YearBucket(propertyID, kind, newYear), newValue},
		)
	} else {
		deltas = append(deltas, bucketDelta{entity.YearBucket(propertyID, kind, newYear), diff})
	}

	if oldYear != newYear || oldMonth != newMonth {
		deltas = append(deltas,
			bucketDelta{entity.MonthBucket(propertyID, kind, oldYear, oldMonth), oldValue.Neg()},
			bucketDelta{entity.MonthBucket(propertyID, kind, newYear, newMonth), newValue},
		)
	} else {
		deltas = append(deltas, bucketDelta{entity.MonthBucket(propertyID, kind, newYear, newMonth), diff})
	}

	for _, d := range deltas {
		if d.delta.IsZero() {
			continue
		}
		if err := a.upsert(ctx, d.key, d.delta); err != nil {
			return err
		}
	}
	return nil
}

type bucketDelta struct {
	key   entity.BucketKey
	delta decimal.Decimal
}

func (a *Aggregator) upsert(ctx context.Context, key entity.BucketKey, delta decimal.Decimal) error {
	if err := a.rollups.UpsertAdd(ctx, key, delta); err != nil {
		return fmt.Errorf("failed to add %s to bucket %s: %w", delta.StringFixed(entity.AmountDecimals), key, err)
	}
	return nil
}
