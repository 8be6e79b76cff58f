package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Granularity is the time span covered by a rollup bucket.
type Granularity string

const (
	GranularityAllTime Granularity = "all_time"
	GranularityYearly  Granularity = "yearly"
	GranularityMonthly Granularity = "monthly"
)

// BucketKey identifies a rollup cell. A nil Year is the all-time bucket,
// a nil Month with a Year set is the yearly bucket.
type BucketKey struct {
	PropertyID uuid.UUID
	Kind       StatisticKind
	Year       *int
	Month      *int
}

// AllTimeBucket returns the all-time bucket key.
func AllTimeBucket(propertyID uuid.UUID, kind StatisticKind) BucketKey {
	return BucketKey{PropertyID: propertyID, Kind: kind}
}

// YearBucket returns the yearly bucket key.
func YearBucket(propertyID uuid.UUID, kind StatisticKind, year int) BucketKey {
	return BucketKey{PropertyID: propertyID, Kind: kind, Year: &year}
}

// MonthBucket returns the monthly bucket key.
func MonthBucket(propertyID uuid.UUID, kind StatisticKind, year, month int) BucketKey {
	return BucketKey{PropertyID: propertyID, Kind: kind, Year: &year, Month: &month}
}

// BucketsForDate returns the all-time, yearly and monthly keys a date contributes to.
func BucketsForDate(propertyID uuid.UUID, kind StatisticKind, date time.Time) [3]BucketKey {
	year, month := date.Year(), int(date.Month())
	return [3]BucketKey{
		AllTimeBucket(propertyID, kind),
		YearBucket(propertyID, kind, year),
		MonthBucket(propertyID, kind, year, month),
	}
}

// Granularity returns the span the key covers.
func (k BucketKey) Granularity() Granularity {
	switch {
	case k.Year == nil:
		return GranularityAllTime
	case k.Month == nil:
		return GranularityYearly
	default:
		return GranularityMonthly
	}
}

// String renders the key for logs and drift reports.
func (k BucketKey) String() string {
	switch k.Granularity() {
	case GranularityAllTime:
		return fmt.Sprintf("%s/%s/all", k.PropertyID, k.Kind)
	case GranularityYearly:
		return fmt.Sprintf("%s/%s/%04d", k.PropertyID, k.Kind, *k.Year)
	default:
		return fmt.Sprintf("%s/%s/%04d-%02d", k.PropertyID, k.Kind, *k.Year, *k.Month)
	}
}

// RollupRecord is the stored aggregate of one bucket.
type RollupRecord struct {
	BucketKey
	Value     decimal.Decimal
	UpdatedAt time.Time
}

// ZeroRollup returns the record reported for a bucket that has no stored row yet.
func ZeroRollup(key BucketKey) *RollupRecord {
	return &RollupRecord{
		BucketKey: key,
		Value:     decimal.Zero,
	}
}

// RollupFilter selects one bucket level of a property: a nil Year matches the
// all-time rows, a nil Month with a Year the yearly rows. A nil Kind matches every kind.
type RollupFilter struct {
	PropertyID uuid.UUID
	Kind       *StatisticKind
	Year       *int
	Month      *int
}
