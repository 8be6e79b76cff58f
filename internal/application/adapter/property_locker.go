// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/google/uuid"
)

// PropertyLocker serializes work on a single property.
// Locks on different properties never contend.
type PropertyLocker interface {
	// Lock blocks until the property lock is held or ctx is done.
	// The returned function releases the lock.
	Lock(ctx context.Context, propertyID uuid.UUID) (unlock func(), err error)
}
