package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// Properties stores properties and answers ownership checks.
type Properties struct {
	mu         sync.RWMutex
	properties map[uuid.UUID]*entity.Property
}

// NewProperties creates an empty property store.
func NewProperties() *Properties {
	return &Properties{
		properties: make(map[uuid.UUID]*entity.Property),
	}
}

// Create stores a property.
func (s *Properties) Create(_ context.Context, property *entity.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *property
	s.properties[property.ID] = &c
	return nil
}

// FindByID returns a copy of the property.
func (s *Properties) FindByID(_ context.Context, id uuid.UUID) (*entity.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[id]
	if !ok {
		return nil, domainerror.ErrPropertyNotFound
	}
	c := *p
	return &c, nil
}

// IsOwner reports whether userID owns the property.
func (s *Properties) IsOwner(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	p, err := s.FindByID(ctx, propertyID)
	if err != nil {
		return false, err
	}
	return p.OwnerID == userID, nil
}
