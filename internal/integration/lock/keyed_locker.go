// Package lock provides per-property locks.
package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/adapter"
)

type keyedMutex struct {
	ch   chan struct{}
	refs int
}

// KeyedLocker is an in-process lock keyed by property. A key's mutex exists
// only while someone holds or waits for it.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedMutex
}

// NewKeyedLocker creates a new in-process keyed locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{
		locks: make(map[uuid.UUID]*keyedMutex),
	}
}

var _ adapter.PropertyLocker = (*KeyedLocker)(nil)

// Lock blocks until the property lock is held or ctx is done.
func (l *KeyedLocker) Lock(ctx context.Context, propertyID uuid.UUID) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[propertyID]
	if !ok {
		m = &keyedMutex{ch: make(chan struct{}, 1)}
		l.locks[propertyID] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(propertyID, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			l.release(propertyID, m)
		})
	}, nil
}

// Size returns the number of keys currently tracked.
func (l *KeyedLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *KeyedLocker) release(propertyID uuid.UUID, m *keyedMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(l.locks, propertyID)
	}
}
