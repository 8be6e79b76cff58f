// Package memory provides goroutine-safe in-memory implementations of the
// repository interfaces, for tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// LedgerEntries stores ledger entries and serves as reconciliation source.
type LedgerEntries struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]*entity.LedgerEntry
}

// NewLedgerEntries creates an empty entry store.
func NewLedgerEntries() *LedgerEntries {
	return &LedgerEntries{
		entries: make(map[int64]*entity.LedgerEntry),
	}
}

// Create stores a copy of entry and assigns the next sequence.
func (s *LedgerEntries) Create(_ context.Context, entry *entity.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	s.entries[entry.ID] = clone(entry)
	return nil
}

// FindByID returns a copy of a non-deleted entry.
func (s *LedgerEntries) FindByID(_ context.Context, id int64) (*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.live(id)
	if !ok {
		return nil, domainerror.ErrEntryNotFound
	}
	return clone(e), nil
}

// FindAnyByID returns a copy of an entry, including soft-deleted ones.
func (s *LedgerEntries) FindAnyByID(_ context.Context, id int64) (*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, domainerror.ErrEntryNotFound
	}
	return clone(e), nil
}

// Update stores the mutable fields of entry, keeping the stored balance.
func (s *LedgerEntries) Update(_ context.Context, entry *entity.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(entry.ID)
	if !ok {
		return domainerror.ErrEntryNotFound
	}
	e.Status = entry.Status
	e.Amount = entry.Amount
	e.LedgerDate = entry.LedgerDate
	e.AccountingDate = entry.AccountingDate
	e.Description = entry.Description
	e.UpdatedAt = entry.UpdatedAt
	return nil
}

// Delete soft-deletes an entry.
func (s *LedgerEntries) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return domainerror.ErrEntryNotFound
	}
	now := time.Now().UTC()
	e.DeletedAt = &now
	return nil
}

// ListChildren returns copies of the live splits of parentID in sequence order.
func (s *LedgerEntries) ListChildren(_ context.Context, parentID int64) ([]*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*entity.LedgerEntry{}
	for _, e := range s.sorted() {
		if e.DeletedAt == nil && e.ParentID != nil && *e.ParentID == parentID {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

// UpdateBalance stores the running balance of an entry and marks it applied.
func (s *LedgerEntries) UpdateBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return domainerror.ErrEntryNotFound
	}
	e.Balance = balance
	e.BalanceApplied = true
	return nil
}

// FindPrecedingAccepted returns the closest applied entry below sequence, or nil.
func (s *LedgerEntries) FindPrecedingAccepted(_ context.Context, propertyID uuid.UUID, sequence int64) (*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *entity.LedgerEntry
	for _, e := range s.applied(propertyID) {
		if e.ID < sequence {
			found = e
		}
	}
	return cloneOrNil(found), nil
}

// FindFollowingAccepted returns the closest applied entry above sequence, or nil.
func (s *LedgerEntries) FindFollowingAccepted(_ context.Context, propertyID uuid.UUID, sequence int64) (*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.applied(propertyID) {
		if e.ID > sequence {
			return clone(e), nil
		}
	}
	return nil, nil
}

// FindLatestAccepted returns the applied entry with the largest sequence, or nil.
func (s *LedgerEntries) FindLatestAccepted(_ context.Context, propertyID uuid.UUID) (*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	applied := s.applied(propertyID)
	if len(applied) == 0 {
		return nil, nil
	}
	return clone(applied[len(applied)-1]), nil
}

// ListAcceptedAfter returns one ascending page of accepted entries above afterSequence.
func (s *LedgerEntries) ListAcceptedAfter(_ context.Context, propertyID uuid.UUID, afterSequence int64, limit int) ([]*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := []*entity.LedgerEntry{}
	for _, e := range s.accepted(propertyID) {
		if e.ID <= afterSequence {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, clone(e))
	}
	return page, nil
}

// ListPropertyIDs returns every property with at least one non-deleted entry.
func (s *LedgerEntries) ListPropertyIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	ids := []uuid.UUID{}
	for _, e := range s.entries {
		if e.DeletedAt != nil {
			continue
		}
		if _, ok := seen[e.PropertyID]; ok {
			continue
		}
		seen[e.PropertyID] = struct{}{}
		ids = append(ids, e.PropertyID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// ListContributingEntries returns the accepted entries of a property. Income
// and expense splits are skipped unless their parent is live and accepted.
func (s *LedgerEntries) ListContributingEntries(_ context.Context, propertyID uuid.UUID) ([]*entity.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*entity.LedgerEntry{}
	for _, e := range s.accepted(propertyID) {
		if e.ParentID != nil && (e.Kind == entity.EntryKindIncome || e.Kind == entity.EntryKindExpense) {
			parent, ok := s.live(*e.ParentID)
			if !ok || !parent.IsAccepted() {
				continue
			}
		}
		out = append(out, clone(e))
	}
	return out, nil
}

// All returns copies of every non-deleted entry of a property in sequence order.
func (s *LedgerEntries) All(propertyID uuid.UUID) []*entity.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*entity.LedgerEntry{}
	for _, e := range s.sorted() {
		if e.PropertyID == propertyID && e.DeletedAt == nil {
			out = append(out, clone(e))
		}
	}
	return out
}

func (s *LedgerEntries) live(id int64) (*entity.LedgerEntry, bool) {
	e, ok := s.entries[id]
	if !ok || e.DeletedAt != nil {
		return nil, false
	}
	return e, true
}

// accepted returns the live accepted entries of a property in ascending sequence.
func (s *LedgerEntries) accepted(propertyID uuid.UUID) []*entity.LedgerEntry {
	out := []*entity.LedgerEntry{}
	for _, e := range s.sorted() {
		if e.PropertyID == propertyID && e.DeletedAt == nil && e.IsAccepted() {
			out = append(out, e)
		}
	}
	return out
}

func (s *LedgerEntries) applied(propertyID uuid.UUID) []*entity.LedgerEntry {
	out := []*entity.LedgerEntry{}
	for _, e := range s.accepted(propertyID) {
		if e.BalanceApplied {
			out = append(out, e)
		}
	}
	return out
}

func (s *LedgerEntries) sorted() []*entity.LedgerEntry {
	out := make([]*entity.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(e *entity.LedgerEntry) *entity.LedgerEntry {
	c := *e
	if e.ParentID != nil {
		parent := *e.ParentID
		c.ParentID = &parent
	}
	if e.DeletedAt != nil {
		deletedAt := *e.DeletedAt
		c.DeletedAt = &deletedAt
	}
	return &c
}

func cloneOrNil(e *entity.LedgerEntry) *entity.LedgerEntry {
	if e == nil {
		return nil
	}
	return clone(e)
}
