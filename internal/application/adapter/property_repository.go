// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// OwnershipChecker answers whether a user may read a property's figures.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, userID, propertyID uuid.UUID) (bool, error)
}

// PropertyRepository defines the persistence operations on properties.
type PropertyRepository interface {
	OwnershipChecker

	// Create persists a new property.
	Create(ctx context.Context, property *entity.Property) error

	// FindByID retrieves a property by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Property, error)
}
