package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// NoPeriod is stored in Year or Month for the all-time and yearly levels.
// SQL NULLs are distinct under a unique index, so a sentinel keeps every level unique.
const NoPeriod = 0

// RollupRecordModel represents the rollup_records table in the database.
type RollupRecordModel struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	PropertyID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_rollup_records_bucket,priority:1"`
	Kind       string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_rollup_records_bucket,priority:2"`
	Year       int             `gorm:"not null;default:0;uniqueIndex:idx_rollup_records_bucket,priority:3"`
	Month      int             `gorm:"not null;default:0;uniqueIndex:idx_rollup_records_bucket,priority:4"`
	Value      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for the RollupRecordModel.
func (RollupRecordModel) TableName() string {
	return "rollup_records"
}

// ToEntity converts a RollupRecordModel to a domain RollupRecord entity.
func (m *RollupRecordModel) ToEntity() *entity.RollupRecord {
	key := entity.AllTimeBucket(m.PropertyID, entity.StatisticKind(m.Kind))
	switch {
	case m.Month != NoPeriod:
		key = entity.MonthBucket(m.PropertyID, key.Kind, m.Year, m.Month)
	case m.Year != NoPeriod:
		key = entity.YearBucket(m.PropertyID, key.Kind, m.Year)
	}

	return &entity.RollupRecord{
		BucketKey: key,
		Value:     m.Value.Round(entity.AmountDecimals),
		UpdatedAt: m.UpdatedAt,
	}
}

// RollupRecordFromEntity converts a domain RollupRecord entity to a RollupRecordModel.
func RollupRecordFromEntity(r *entity.RollupRecord) *RollupRecordModel {
	m := RollupRecordFromKey(r.BucketKey)
	m.Value = r.Value
	m.UpdatedAt = r.UpdatedAt
	return m
}

// RollupRecordFromKey returns a zero-valued model for a bucket key.
func RollupRecordFromKey(key entity.BucketKey) *RollupRecordModel {
	year, month := BucketColumns(key)
	return &RollupRecordModel{
		PropertyID: key.PropertyID,
		Kind:       string(key.Kind),
		Year:       year,
		Month:      month,
		Value:      decimal.Zero,
	}
}

// BucketColumns returns the stored year and month of a key.
func BucketColumns(key entity.BucketKey) (year, month int) {
	if key.Year != nil {
		year = *key.Year
	}
	if key.Month != nil {
		month = *key.Month
	}
	return year, month
}
