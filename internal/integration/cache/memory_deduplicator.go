package cache

import (
	"context"
	"sync"
	"time"

	"github.com/propertyledger/backend/internal/application/adapter"
)

// MemoryDeduplicator is a single-process deduplicator. Claims older than the
// TTL are forgotten lazily.
type MemoryDeduplicator struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryDeduplicator creates a new in-memory deduplicator.
// A zero ttl keeps claims forever.
func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	return &MemoryDeduplicator{
		ttl:    ttl,
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

var _ adapter.Deduplicator = (*MemoryDeduplicator)(nil)

// Claim records key unless a live claim exists.
func (d *MemoryDeduplicator) Claim(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if claimedAt, ok := d.claims[key]; ok && !d.expired(claimedAt, now) {
		return false, nil
	}
	d.claims[key] = now
	if len(d.claims)%1024 == 0 {
		d.sweep(now)
	}
	return true, nil
}

// Release forgets key.
func (d *MemoryDeduplicator) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claims, key)
	return nil
}

func (d *MemoryDeduplicator) expired(claimedAt, now time.Time) bool {
	return d.ttl > 0 && now.Sub(claimedAt) >= d.ttl
}

func (d *MemoryDeduplicator) sweep(now time.Time) {
	for key, claimedAt := range d.claims {
		if d.expired(claimedAt, now) {
			delete(d.claims, key)
		}
	}
}
