// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/persistence/model"
)

// ledgerEntryRepository implements the adapter.LedgerEntryRepository interface.
type ledgerEntryRepository struct {
	db *gorm.DB
}

// NewLedgerEntryRepository creates a new ledger entry repository instance.
func NewLedgerEntryRepository(db *gorm.DB) adapter.LedgerEntryRepository {
	return &ledgerEntryRepository{
		db: db,
	}
}

// Create persists a new entry and writes the assigned sequence back to it.
func (r *ledgerEntryRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	entryModel := model.LedgerEntryFromEntity(entry)
	entryModel.ID = 0
	if err := r.db.WithContext(ctx).Create(entryModel).Error; err != nil {
		return err
	}
	entry.ID = entryModel.ID
	return nil
}

// FindByID retrieves a non-deleted entry by its sequence ID.
func (r *ledgerEntryRepository) FindByID(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntryModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrEntryNotFound
		}
		return nil, result.Error
	}
	return entryModel.ToEntity(), nil
}

// FindAnyByID retrieves an entry by its sequence ID, including soft-deleted rows.
func (r *ledgerEntryRepository) FindAnyByID(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntryModel
	result := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrEntryNotFound
		}
		return nil, result.Error
	}
	return entryModel.ToEntity(), nil
}

// Update persists the mutable fields of an entry. The balance is owned by the
// balance maintainer and is not written here.
func (r *ledgerEntryRepository) Update(ctx context.Context, entry *entity.LedgerEntry) error {
	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":          string(entry.Status),
			"amount":          entry.Amount,
			"ledger_date":     entry.LedgerDate,
			"accounting_date": entry.AccountingDate,
			"description":     entry.Description,
			"updated_at":      entry.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrEntryNotFound
	}
	return nil
}

// Delete soft-deletes an entry.
func (r *ledgerEntryRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.LedgerEntryModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrEntryNotFound
	}
	return nil
}

// ListChildren returns the live splits of parentID in sequence order.
func (r *ledgerEntryRepository) ListChildren(ctx context.Context, parentID int64) ([]*entity.LedgerEntry, error) {
	var entryModels []model.LedgerEntryModel
	result := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("id ASC").
		Find(&entryModels)
	if result.Error != nil {
		return nil, result.Error
	}
	return toLedgerEntries(entryModels), nil
}

// UpdateBalance stores the running balance of an entry.
func (r *ledgerEntryRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"balance":         balance,
			"balance_applied": true,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerror.ErrEntryNotFound
	}
	return nil
}

// FindPrecedingAccepted returns the closest applied entry below sequence, or nil.
func (r *ledgerEntryRepository) FindPrecedingAccepted(ctx context.Context, propertyID uuid.UUID, sequence int64) (*entity.LedgerEntry, error) {
	return r.takeOne(r.applied(ctx, propertyID).Where("id < ?", sequence).Order("id DESC"))
}

// FindFollowingAccepted returns the closest applied entry above sequence, or nil.
func (r *ledgerEntryRepository) FindFollowingAccepted(ctx context.Context, propertyID uuid.UUID, sequence int64) (*entity.LedgerEntry, error) {
	return r.takeOne(r.applied(ctx, propertyID).Where("id > ?", sequence).Order("id ASC"))
}

// FindLatestAccepted returns the applied entry with the largest sequence, or nil.
func (r *ledgerEntryRepository) FindLatestAccepted(ctx context.Context, propertyID uuid.UUID) (*entity.LedgerEntry, error) {
	return r.takeOne(r.applied(ctx, propertyID).Order("id DESC"))
}

// ListAcceptedAfter returns one ascending page of accepted entries above afterSequence.
func (r *ledgerEntryRepository) ListAcceptedAfter(ctx context.Context, propertyID uuid.UUID, afterSequence int64, limit int) ([]*entity.LedgerEntry, error) {
	var entryModels []model.LedgerEntryModel
	result := r.accepted(ctx, propertyID).
		Where("id > ?", afterSequence).
		Order("id ASC").
		Limit(limit).
		Find(&entryModels)
	if result.Error != nil {
		return nil, result.Error
	}
	return toLedgerEntries(entryModels), nil
}

func (r *ledgerEntryRepository) accepted(ctx context.Context, propertyID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("property_id = ? AND status = ?", propertyID, string(entity.EntryStatusAccepted))
}

func (r *ledgerEntryRepository) applied(ctx context.Context, propertyID uuid.UUID) *gorm.DB {
	return r.accepted(ctx, propertyID).Where("balance_applied = ?", true)
}

func (r *ledgerEntryRepository) takeOne(query *gorm.DB) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntryModel
	result := query.Take(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return entryModel.ToEntity(), nil
}

func toLedgerEntries(models []model.LedgerEntryModel) []*entity.LedgerEntry {
	entries := make([]*entity.LedgerEntry, len(models))
	for i := range models {
		entries[i] = models[i].ToEntity()
	}
	return entries
}
