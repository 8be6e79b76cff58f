package entity

import (
	"time"

	"github.com/google/uuid"
)

// Property is a real-estate unit whose ledger is maintained.
type Property struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	CreatedAt time.Time
}
