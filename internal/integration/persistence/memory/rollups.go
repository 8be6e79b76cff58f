package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
)

type rollupKey struct {
	propertyID uuid.UUID
	kind       entity.StatisticKind
	year       int
	month      int
}

func keyOf(k entity.BucketKey) rollupKey {
	rk := rollupKey{propertyID: k.PropertyID, kind: k.Kind}
	if k.Year != nil {
		rk.year = *k.Year
	}
	if k.Month != nil {
		rk.month = *k.Month
	}
	return rk
}

// Rollups stores rollup records. UpsertAdd runs under the store mutex, which
// makes it atomic per bucket.
type Rollups struct {
	mu      sync.Mutex
	records map[rollupKey]*entity.RollupRecord
	upserts int
}

// NewRollups creates an empty rollup store.
func NewRollups() *Rollups {
	return &Rollups{
		records: make(map[rollupKey]*entity.RollupRecord),
	}
}

// UpsertAdd inserts the bucket with delta or adds delta to it.
func (s *Rollups) UpsertAdd(_ context.Context, key entity.BucketKey, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upserts++
	rk := keyOf(key)
	r, ok := s.records[rk]
	if !ok {
		r = entity.ZeroRollup(key)
		s.records[rk] = r
	}
	r.Value = r.Value.Add(delta).Round(entity.AmountDecimals)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Put stores the records, overwriting existing values.
func (s *Rollups) Put(_ context.Context, records []*entity.RollupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, r := range records {
		c := *r
		c.Value = c.Value.Round(entity.AmountDecimals)
		c.UpdatedAt = now
		s.records[keyOf(r.BucketKey)] = &c
	}
	return nil
}

// Find returns a copy of the stored record, or nil.
func (s *Rollups) Find(_ context.Context, key entity.BucketKey) (*entity.RollupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[keyOf(key)]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

// List returns the records of one bucket level.
func (s *Rollups) List(_ context.Context, filter entity.RollupFilter) ([]*entity.RollupRecord, error) {
	want := keyOf(entity.BucketKey{PropertyID: filter.PropertyID, Year: filter.Year, Month: filter.Month})

	return s.collect(func(k rollupKey) bool {
		if k.propertyID != want.propertyID || k.year != want.year || k.month != want.month {
			return false
		}
		return filter.Kind == nil || k.kind == *filter.Kind
	}), nil
}

// ListByProperty returns every record of the given kinds for a property.
func (s *Rollups) ListByProperty(_ context.Context, propertyID uuid.UUID, kinds []entity.StatisticKind) ([]*entity.RollupRecord, error) {
	return s.collect(func(k rollupKey) bool {
		return k.propertyID == propertyID && containsKind(kinds, k.kind)
	}), nil
}

// DeleteKinds removes the records of the given kinds, for one property or all.
func (s *Rollups) DeleteKinds(_ context.Context, propertyID *uuid.UUID, kinds []entity.StatisticKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for k := range s.records {
		if propertyID != nil && k.propertyID != *propertyID {
			continue
		}
		if containsKind(kinds, k.kind) {
			delete(s.records, k)
			removed++
		}
	}
	return removed, nil
}

// Upserts returns how many UpsertAdd calls the store has served.
func (s *Rollups) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func (s *Rollups) collect(match func(rollupKey) bool) []*entity.RollupRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]rollupKey, 0)
	for k := range s.records {
		if match(k) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.month < b.month
	})

	out := make([]*entity.RollupRecord, len(keys))
	for i, k := range keys {
		c := *s.records[k]
		out[i] = &c
	}
	return out
}

func containsKind(kinds []entity.StatisticKind, kind entity.StatisticKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
