// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/domain/entity"
)

// ReconciliationSource reads the source rows rollups are rebuilt from.
type ReconciliationSource interface {
	// ListPropertyIDs returns every property that has at least one ledger entry.
	ListPropertyIDs(ctx context.Context) ([]uuid.UUID, error)

	// ListContributingEntries returns the accepted entries of a property whose
	// parent entry is either absent or accepted.
	ListContributingEntries(ctx context.Context, propertyID uuid.UUID) ([]*entity.LedgerEntry, error)
}
