package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// PropertyModel represents the properties table in the database.
type PropertyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the PropertyModel.
func (PropertyModel) TableName() string {
	return "properties"
}

// ToEntity converts a PropertyModel to a domain Property entity.
func (m *PropertyModel) ToEntity() *entity.Property {
	return &entity.Property{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

// PropertyFromEntity converts a domain Property entity to a PropertyModel.
func PropertyFromEntity(p *entity.Property) *PropertyModel {
	return &PropertyModel{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
	}
}
