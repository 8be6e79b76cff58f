// Package reconciliation rebuilds rollups from source ledger rows.
package reconciliation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// DefaultConcurrency is the number of properties rebuilt in parallel.
const DefaultConcurrency = 4

// ReconcileInput represents the input for a reconciliation run.
type ReconcileInput struct {
	PropertyID *uuid.UUID // Optional - if nil, reconcile every property
}

// KindSummary reports the all-time buckets written for one statistic kind.
type KindSummary struct {
	Count int
	Total decimal.Decimal
}

// ReconcileOutput represents the result of a reconciliation run.
type ReconcileOutput struct {
	Kinds       map[entity.StatisticKind]KindSummary
	Properties  int
	RowsRemoved int64
	RowsWritten int
	Duration    time.Duration
}

// ReconcileUseCase replaces the INCOME, EXPENSE, DEPOSIT and WITHDRAW rollups
// with sums computed directly from accepted ledger entries.
//
// A run is a full replace: prior rows are cleared first, so a failed run is
// repaired by running it again.
type ReconcileUseCase struct {
	source      adapter.ReconciliationSource
	rollups     adapter.RollupRepository
	concurrency int
}

// NewReconcileUseCase creates a new ReconcileUseCase instance.
func NewReconcileUseCase(source adapter.ReconciliationSource, rollups adapter.RollupRepository, concurrency int) *ReconcileUseCase {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &ReconcileUseCase{
		source:      source,
		rollups:     rollups,
		concurrency: concurrency,
	}
}

// Execute runs the reconciliation.
func (uc *ReconcileUseCase) Execute(ctx context.Context, input ReconcileInput) (*ReconcileOutput, error) {
	started := time.Now()

	removed, err := uc.rollups.DeleteKinds(ctx, input.PropertyID, entity.ReconciledKinds)
	if err != nil {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeReconciliationClear,
			"failed to clear reconciled rollups",
			err,
		)
	}

	var propertyIDs []uuid.UUID
	if input.PropertyID != nil {
		propertyIDs = []uuid.UUID{*input.PropertyID}
	} else {
		propertyIDs, err = uc.source.ListPropertyIDs(ctx)
		if err != nil {
			return nil, domainerror.NewReconciliationError(
				domainerror.ErrCodeReconciliationSource,
				"failed to list properties",
				err,
			)
		}
	}

	output := &ReconcileOutput{
		Kinds:       make(map[entity.StatisticKind]KindSummary, len(entity.ReconciledKinds)),
		Properties:  len(propertyIDs),
		RowsRemoved: removed,
	}
	for _, kind := range entity.ReconciledKinds {
		output.Kinds[kind] = KindSummary{Total: decimal.Zero}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	for _, propertyID := range propertyIDs {
		propertyID := propertyID
		g.Go(func() error {
			records, err := uc.reconcileProperty(gctx, propertyID)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			output.RowsWritten += len(records)
			for _, r := range records {
				if r.Granularity() != entity.GranularityAllTime {
					continue
				}
				summary := output.Kinds[r.Kind]
				summary.Count++
				summary.Total = summary.Total.Add(r.Value)
				output.Kinds[r.Kind] = summary
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Reconciliation failed, rollups may be incomplete until it is run again",
			"error", err,
		)
		return nil, err
	}

	output.Duration = time.Since(started)
	slog.Info("Reconciliation completed",
		"properties", output.Properties,
		"rows_removed", output.RowsRemoved,
		"rows_written", output.RowsWritten,
		"duration", output.Duration,
	)
	return output, nil
}

func (uc *ReconcileUseCase) reconcileProperty(ctx context.Context, propertyID uuid.UUID) ([]*entity.RollupRecord, error) {
	entries, err := uc.source.ListContributingEntries(ctx, propertyID)
	if err != nil {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeReconciliationSource,
			"failed to read entries of property "+propertyID.String(),
			err,
		)
	}

	records := BuildRollups(propertyID, entries)
	if len(records) == 0 {
		return nil, nil
	}
	if err := uc.rollups.Put(ctx, records); err != nil {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeReconciliationWrite,
			"failed to write rollups of property "+propertyID.String(),
			err,
		)
	}
	return records, nil
}

// bucket is a comparable form of entity.BucketKey; 0 stands for an absent year or month.
type bucket struct {
	kind  entity.StatisticKind
	year  int
	month int
}

// BuildRollups groups the contributions of entries into all-time, yearly and
// monthly records for each reconciled kind. BALANCE is never produced.
// Records are ordered by kind, year and month.
func BuildRollups(propertyID uuid.UUID, entries []*entity.LedgerEntry) []*entity.RollupRecord {
	sums := make(map[bucket]decimal.Decimal)
	for _, e := range entries {
		if !e.IsAccepted() {
			continue
		}
		for _, kind := range entity.StatisticKindsFor(e.Kind) {
			if kind == entity.StatisticBalance {
				continue
			}
			date := e.RelevantDate(kind)
			value := kind.Contribution(e.Amount)
			for _, b := range []bucket{
				{kind: kind},
				{kind: kind, year: date.Year()},
				{kind: kind, year: date.Year(), month: int(date.Month())},
			} {
				sums[b] = sums[b].Add(value)
			}
		}
	}

	records := make([]*entity.RollupRecord, 0, len(sums))
	for b, sum := range sums {
		key := entity.AllTimeBucket(propertyID, b.kind)
		switch {
		case b.month != 0:
			key = entity.MonthBucket(propertyID, b.kind, b.year, b.month)
		case b.year != 0:
			key = entity.YearBucket(propertyID, b.kind, b.year)
		}
		records = append(records, &entity.RollupRecord{
			BucketKey: key,
			Value:     sum.Round(entity.AmountDecimals),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return lessKey(records[i].BucketKey, records[j].BucketKey)
	})
	return records
}

func lessKey(a, b entity.BucketKey) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	ay, am := levelValues(a)
	by, bm := levelValues(b)
	if ay != by {
		return ay < by
	}
	return am < bm
}

func levelValues(k entity.BucketKey) (int, int) {
	year, month := 0, 0
	if k.Year != nil {
		year = *k.Year
	}
	if k.Month != nil {
		month = *k.Month
	}
	return year, month
}
