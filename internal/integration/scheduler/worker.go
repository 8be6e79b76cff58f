// Package scheduler runs the periodic consistency passes.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/usecase/reconciliation"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// Reconciler rebuilds rollups from source rows.
type Reconciler interface {
	Execute(ctx context.Context, input reconciliation.ReconcileInput) (*reconciliation.ReconcileOutput, error)
}

// BalanceAuditor checks and repairs stored running balances.
type BalanceAuditor interface {
	Verify(ctx context.Context, propertyID uuid.UUID) error
	Rebuild(ctx context.Context, propertyID uuid.UUID) (int, error)
}

// PropertyLister lists the properties that own ledger entries.
type PropertyLister interface {
	ListPropertyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// MaintenanceMonitor reports how much event maintenance is still queued.
type MaintenanceMonitor interface {
	Pending() int
}

// Worker periodically reconciles rollups and audits balances.
type Worker struct {
	reconciler Reconciler
	auditor    BalanceAuditor
	properties PropertyLister
	monitor    MaintenanceMonitor
	interval   time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

// WithMaintenanceMonitor skips the scheduled pass while maintenance is pending.
// Rebuilding under queued deltas would apply them twice.
func WithMaintenanceMonitor(monitor MaintenanceMonitor) Option {
	return func(w *Worker) {
		w.monitor = monitor
	}
}

// WorkerConfig holds configuration for the consistency worker.
type WorkerConfig struct {
	Interval time.Duration
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Interval: time.Hour,
	}
}

// NewWorker creates a new consistency worker. A nil auditor skips the balance audit.
func NewWorker(reconciler Reconciler, auditor BalanceAuditor, properties PropertyLister, config WorkerConfig, opts ...Option) *Worker {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultWorkerConfig().Interval
	}
	w := &Worker{
		reconciler: reconciler,
		auditor:    auditor,
		properties: properties,
		interval:   interval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the worker loop. It blocks until the context is cancelled.
// The first pass runs after one interval so startup does not compete with traffic.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("Consistency worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consistency worker shutting down")
			return
		case <-ticker.C:
			w.RunNow(ctx)
		}
	}
}

// RunNow runs one reconciliation and one balance audit immediately. Both are
// skipped while event maintenance is still queued.
func (w *Worker) RunNow(ctx context.Context) {
	if w.maintenancePending("Scheduled reconciliation skipped, maintenance pending") {
		return
	}

	output, err := w.reconciler.Execute(ctx, reconciliation.ReconcileInput{})
	if err != nil {
		slog.Error("Scheduled reconciliation failed", "error", err)
	} else {
		slog.Info("Scheduled reconciliation completed",
			"properties", output.Properties,
			"rows_written", output.RowsWritten,
			"duration", output.Duration,
		)
	}

	if w.auditor == nil {
		return
	}
	if w.maintenancePending("Balance audit skipped, maintenance pending") {
		return
	}
	w.auditBalances(ctx)
}

func (w *Worker) maintenancePending(msg string) bool {
	if w.monitor == nil {
		return false
	}
	pending := w.monitor.Pending()
	if pending > 0 {
		slog.Info(msg, "pending", pending)
	}
	return pending > 0
}

// auditBalances verifies every property and rebuilds the ones that drifted.
func (w *Worker) auditBalances(ctx context.Context) {
	propertyIDs, err := w.properties.ListPropertyIDs(ctx)
	if err != nil {
		slog.Error("Failed to list properties for balance audit", "error", err)
		return
	}

	repaired := 0
	for _, propertyID := range propertyIDs {
		if ctx.Err() != nil {
			return
		}

		logger := slog.With("property_id", propertyID)

		err := w.auditor.Verify(ctx, propertyID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domainerror.ErrBalanceDrift) {
			logger.Error("Balance verification failed", "error", err)
			continue
		}

		logger.Warn("Balance drift detected", "error", err)
		corrected, err := w.auditor.Rebuild(ctx, propertyID)
		if err != nil {
			logger.Error("Balance rebuild failed", "error", err)
			continue
		}
		logger.Info("Balances rebuilt", "corrected", corrected)
		repaired++
	}

	slog.Info("Balance audit completed", "properties", len(propertyIDs), "repaired", repaired)
}
