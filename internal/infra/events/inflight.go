package events

import (
	"context"
	"sync"
)

// InFlight counts maintenance work that has been dispatched but not finished.
// Unlike sync.WaitGroup it can be inspected and waited on with a deadline.
type InFlight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

// NewInFlight creates an idle counter.
func NewInFlight() *InFlight {
	return &InFlight{}
}

// Add adjusts the counter by delta.
func (f *InFlight) Add(delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.n == 0 && delta > 0 {
		f.idle = make(chan struct{})
	}
	f.n += delta
	if f.n < 0 {
		panic("events: negative in-flight counter")
	}
	if f.n == 0 && f.idle != nil {
		close(f.idle)
		f.idle = nil
	}
}

// Done decrements the counter by one.
func (f *InFlight) Done() {
	f.Add(-1)
}

// Pending returns the number of unfinished units of work.
func (f *InFlight) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Wait blocks until no work is pending or ctx is done.
func (f *InFlight) Wait(ctx context.Context) error {
	f.mu.Lock()
	if f.n == 0 {
		f.mu.Unlock()
		return nil
	}
	idle := f.idle
	f.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
