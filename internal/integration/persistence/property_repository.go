package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/persistence/model"
)

// propertyRepository implements the adapter.PropertyRepository interface.
type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository instance.
func NewPropertyRepository(db *gorm.DB) adapter.PropertyRepository {
	return &propertyRepository{
		db: db,
	}
}

// Create persists a new property.
func (r *propertyRepository) Create(ctx context.Context, property *entity.Property) error {
	return r.db.WithContext(ctx).Create(model.PropertyFromEntity(property)).Error
}

// FindByID retrieves a property by its ID.
func (r *propertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Property, error) {
	var propertyModel model.PropertyModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&propertyModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrPropertyNotFound
		}
		return nil, result.Error
	}
	return propertyModel.ToEntity(), nil
}

// IsOwner reports whether userID owns the property.
func (r *propertyRepository) IsOwner(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	property, err := r.FindByID(ctx, propertyID)
	if err != nil {
		return false, err
	}
	return property.OwnerID == userID, nil
}
