package events

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
)

// ErrRouterClosed is returned when an event is dispatched after Close.
var ErrRouterClosed = errors.New("event router closed")

// Config holds configuration for the event router.
type Config struct {
	BalanceShards     int           // Single-writer workers for balance work
	ShardQueueSize    int           // Buffered events per balance shard
	RollupConcurrency int           // Concurrent rollup handlers
	HandlerTimeout    time.Duration // Zero disables the per-handler timeout
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() Config {
	return Config{
		BalanceShards:     8,
		ShardQueueSize:    64,
		RollupConcurrency: 16,
		HandlerTimeout:    30 * time.Second,
	}
}

// ErrorHook is called when a listener fails to handle an event.
type ErrorHook func(event *entity.LedgerEvent, listener string, err error)

// Option configures a Router.
type Option func(*Router)

// WithDeduplicator makes the router skip (event, listener) pairs it has already handled.
func WithDeduplicator(d adapter.Deduplicator) Option {
	return func(r *Router) {
		r.dedup = d
	}
}

// WithErrorHook registers a hook for failed maintenance.
func WithErrorHook(hook ErrorHook) Option {
	return func(r *Router) {
		r.onError = hook
	}
}

type balanceTask struct {
	ctx   context.Context
	event *entity.LedgerEvent
	done  chan error // nil for fire-and-forget dispatch
}

// Router delivers each ledger event to the balance listener and the rollup
// listener independently.
//
// Balance work for a property always lands on the same shard worker, so events
// of one property are applied in dispatch order while other properties proceed
// in parallel. Rollup work is only bounded by a semaphore.
type Router struct {
	balance BalanceListener
	rollup  RollupListener
	dedup   adapter.Deduplicator
	onError ErrorHook
	timeout time.Duration

	shards    []chan balanceTask
	rollupSem chan struct{}
	inFlight  *InFlight

	baseCtx context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRouter creates a router and starts its balance shard workers.
func NewRouter(balance BalanceListener, rollup RollupListener, config Config, opts ...Option) *Router {
	if config.BalanceShards <= 0 {
		config.BalanceShards = DefaultConfig().BalanceShards
	}
	if config.ShardQueueSize < 0 {
		config.ShardQueueSize = 0
	}
	if config.RollupConcurrency <= 0 {
		config.RollupConcurrency = DefaultConfig().RollupConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		balance:   balance,
		rollup:    rollup,
		timeout:   config.HandlerTimeout,
		shards:    make([]chan balanceTask, config.BalanceShards),
		rollupSem: make(chan struct{}, config.RollupConcurrency),
		inFlight:  NewInFlight(),
		baseCtx:   ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range r.shards {
		r.shards[i] = make(chan balanceTask, config.ShardQueueSize)
		r.workers.Add(1)
		go r.runShard(r.shards[i])
	}

	slog.Info("Event router started",
		"balance_shards", config.BalanceShards,
		"rollup_concurrency", config.RollupConcurrency,
		"deduplication", r.dedup != nil,
	)
	return r
}

// Publish dispatches the event in-process. It lets the router stand in as the
// adapter.EventPublisher when no external transport is configured.
func (r *Router) Publish(_ context.Context, event *entity.LedgerEvent) error {
	return r.Dispatch(event)
}

// Dispatch queues the event for maintenance and returns without waiting.
// Failures are logged and reported through the error hook.
func (r *Router) Dispatch(event *entity.LedgerEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRouterClosed
	}

	if needsBalance(event) {
		r.inFlight.Add(1)
		r.shardFor(event.PropertyID) <- balanceTask{ctx: r.baseCtx, event: event}
	}
	if needsRollup(event) {
		r.inFlight.Add(1)
		go func() {
			defer r.inFlight.Done()
			r.rollupSem <- struct{}{}
			defer func() { <-r.rollupSem }()
			_ = r.run(r.baseCtx, event, ListenerRollup)
		}()
	}
	return nil
}

// Handle applies the event and waits for both listeners. It returns the joined
// listener errors; a listener that succeeded is not rerun on redelivery when a
// deduplicator is configured.
func (r *Router) Handle(ctx context.Context, event *entity.LedgerEvent) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrRouterClosed
	}

	var balanceDone chan error
	if needsBalance(event) {
		balanceDone = make(chan error, 1)
		r.inFlight.Add(1)
		select {
		case r.shardFor(event.PropertyID) <- balanceTask{ctx: ctx, event: event, done: balanceDone}:
		case <-ctx.Done():
			r.inFlight.Done()
			r.mu.RUnlock()
			return ctx.Err()
		}
	}
	r.mu.RUnlock()

	var rollupErr error
	if needsRollup(event) {
		r.inFlight.Add(1)
		select {
		case r.rollupSem <- struct{}{}:
			rollupErr = r.run(ctx, event, ListenerRollup)
			<-r.rollupSem
		case <-ctx.Done():
			rollupErr = ctx.Err()
		}
		r.inFlight.Done()
	}

	var balanceErr error
	if balanceDone != nil {
		balanceErr = <-balanceDone
	}
	return errors.Join(balanceErr, rollupErr)
}

// Pending returns the number of listener invocations not yet finished.
func (r *Router) Pending() int {
	return r.inFlight.Pending()
}

// Wait blocks until no maintenance is pending or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	return r.inFlight.Wait(ctx)
}

// Close stops accepting events, drains queued work and stops the shard workers.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, shard := range r.shards {
		close(shard)
	}
	r.mu.Unlock()

	err := r.inFlight.Wait(ctx)
	r.cancel()
	r.workers.Wait()

	slog.Info("Event router stopped", "pending", r.inFlight.Pending())
	return err
}

func (r *Router) runShard(tasks <-chan balanceTask) {
	defer r.workers.Done()
	for task := range tasks {
		err := r.run(task.ctx, task.event, ListenerBalance)
		if task.done != nil {
			task.done <- err
		}
		r.inFlight.Done()
	}
}

func (r *Router) shardFor(propertyID uuid.UUID) chan balanceTask {
	h := fnv.New32a()
	_, _ = h.Write(propertyID[:])
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// run invokes one listener for one event, honouring deduplication.
func (r *Router) run(ctx context.Context, event *entity.LedgerEvent, listener string) error {
	logger := slog.With(
		"event_id", event.ID,
		"type", event.Type,
		"entry_id", event.EntryID,
		"property_id", event.PropertyID,
		"listener", listener,
	)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	key := DedupKey(event, listener)
	if r.dedup != nil {
		claimed, err := r.dedup.Claim(ctx, key)
		if err != nil {
			err = fmt.Errorf("failed to claim %s: %w", key, err)
			r.fail(logger, event, listener, err)
			return err
		}
		if !claimed {
			logger.Debug("Skipping duplicate event")
			return nil
		}
	}

	var err error
	switch listener {
	case ListenerBalance:
		err = applyBalance(ctx, r.balance, event)
	case ListenerRollup:
		err = applyRollup(ctx, r.rollup, event)
	}
	if err != nil {
		if r.dedup != nil {
			// Release with a fresh context so a timed-out handler can still be retried.
			if relErr := r.dedup.Release(context.WithoutCancel(ctx), key); relErr != nil {
				logger.Warn("Failed to release deduplication key", "error", relErr)
			}
		}
		r.fail(logger, event, listener, err)
		return err
	}

	logger.Debug("Event handled")
	return nil
}

func (r *Router) fail(logger *slog.Logger, event *entity.LedgerEvent, listener string, err error) {
	logger.Error("Maintenance failed", "error", err)
	if r.onError != nil {
		r.onError(event, listener, err)
	}
}

// DedupKey identifies one delivery of an event to one listener.
func DedupKey(event *entity.LedgerEvent, listener string) string {
	return "ledger-event:" + event.ID.String() + ":" + listener
}
