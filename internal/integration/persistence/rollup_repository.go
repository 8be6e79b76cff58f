package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	"github.com/propertyledger/backend/internal/integration/persistence/model"
)

// putBatchSize bounds the rows per INSERT when replacing rollups.
const putBatchSize = 500

var rollupBucketColumns = []clause.Column{
	{Name: "property_id"},
	{Name: "kind"},
	{Name: "year"},
	{Name: "month"},
}

// rollupRepository implements the adapter.RollupRepository interface.
type rollupRepository struct {
	db *gorm.DB
}

// NewRollupRepository creates a new rollup repository instance.
func NewRollupRepository(db *gorm.DB) adapter.RollupRepository {
	return &rollupRepository{
		db: db,
	}
}

// UpsertAdd inserts the bucket with delta or adds delta to it, in one
// INSERT ... ON CONFLICT DO UPDATE statement.
func (r *rollupRepository) UpsertAdd(ctx context.Context, key entity.BucketKey, delta decimal.Decimal) error {
	recordModel := model.RollupRecordFromKey(key)
	recordModel.Value = delta.Round(entity.AmountDecimals)
	recordModel.UpdatedAt = time.Now().UTC()

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: rollupBucketColumns,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      gorm.Expr("rollup_records.value + excluded.value"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(recordModel).Error
}

// Put stores the records, overwriting the value of existing buckets.
func (r *rollupRepository) Put(ctx context.Context, records []*entity.RollupRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	recordModels := make([]*model.RollupRecordModel, len(records))
	for i, record := range records {
		recordModels[i] = model.RollupRecordFromEntity(record)
		recordModels[i].Value = record.Value.Round(entity.AmountDecimals)
		recordModels[i].UpdatedAt = now
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   rollupBucketColumns,
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		CreateInBatches(recordModels, putBatchSize).Error
}

// Find returns the stored record for a bucket, or nil.
func (r *rollupRepository) Find(ctx context.Context, key entity.BucketKey) (*entity.RollupRecord, error) {
	year, month := model.BucketColumns(key)

	var recordModel model.RollupRecordModel
	result := r.db.WithContext(ctx).
		Where("property_id = ? AND kind = ? AND year = ? AND month = ?", key.PropertyID, string(key.Kind), year, month).
		Take(&recordModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return recordModel.ToEntity(), nil
}

// List returns the records of one bucket level.
func (r *rollupRepository) List(ctx context.Context, filter entity.RollupFilter) ([]*entity.RollupRecord, error) {
	year, month := model.NoPeriod, model.NoPeriod
	if filter.Year != nil {
		year = *filter.Year
	}
	if filter.Month != nil {
		month = *filter.Month
	}

	query := r.db.WithContext(ctx).
		Where("property_id = ? AND year = ? AND month = ?", filter.PropertyID, year, month)
	if filter.Kind != nil {
		query = query.Where("kind = ?", string(*filter.Kind))
	}

	var recordModels []model.RollupRecordModel
	if err := query.Order("kind, year, month").Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toRollupRecords(recordModels), nil
}

// ListByProperty returns every record of the given kinds for a property.
func (r *rollupRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID, kinds []entity.StatisticKind) ([]*entity.RollupRecord, error) {
	var recordModels []model.RollupRecordModel
	result := r.db.WithContext(ctx).
		Where("property_id = ? AND kind IN ?", propertyID, kindStrings(kinds)).
		Order("kind, year, month").
		Find(&recordModels)
	if result.Error != nil {
		return nil, result.Error
	}
	return toRollupRecords(recordModels), nil
}

// DeleteKinds removes the records of the given kinds, for one property or all.
func (r *rollupRepository) DeleteKinds(ctx context.Context, propertyID *uuid.UUID, kinds []entity.StatisticKind) (int64, error) {
	query := r.db.WithContext(ctx).Where("kind IN ?", kindStrings(kinds))
	if propertyID != nil {
		query = query.Where("property_id = ?", *propertyID)
	}

	result := query.Delete(&model.RollupRecordModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func kindStrings(kinds []entity.StatisticKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func toRollupRecords(models []model.RollupRecordModel) []*entity.RollupRecord {
	records := make([]*entity.RollupRecord, len(models))
	for i := range models {
		records[i] = models[i].ToEntity()
	}
	return records
}
