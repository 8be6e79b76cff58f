package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	"github.com/propertyledger/backend/internal/integration/persistence/model"
)

// reconciliationRepository implements the adapter.ReconciliationSource interface.
type reconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository creates a new reconciliation source instance.
func NewReconciliationRepository(db *gorm.DB) adapter.ReconciliationSource {
	return &reconciliationRepository{
		db: db,
	}
}

// ListPropertyIDs returns every property with at least one non-deleted entry.
func (r *reconciliationRepository) ListPropertyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Distinct("property_id").
		Order("property_id").
		Pluck("property_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// ListContributingEntries returns the accepted entries of a property. Income
// and expense splits only count while their parent is accepted and live;
// deposits and withdrawals count on their own.
func (r *reconciliationRepository) ListContributingEntries(ctx context.Context, propertyID uuid.UUID) ([]*entity.LedgerEntry, error) {
	accepted := string(entity.EntryStatusAccepted)
	statisticKinds := []string{string(entity.EntryKindIncome), string(entity.EntryKindExpense)}
	acceptedParents := r.db.Model(&model.LedgerEntryModel{}).
		Select("id").
		Where("status = ?", accepted)

	var entryModels []model.LedgerEntryModel
	result := r.db.WithContext(ctx).
		Where("property_id = ? AND status = ?", propertyID, accepted).
		Where("parent_id IS NULL OR kind NOT IN (?) OR parent_id IN (?)", statisticKinds, acceptedParents).
		Order("id ASC").
		Find(&entryModels)
	if result.Error != nil {
		return nil, result.Error
	}
	return toLedgerEntries(entryModels), nil
}
