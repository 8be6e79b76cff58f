package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
)

// Drift is one bucket whose incrementally maintained value differed from the
// value rebuilt by reconciliation.
type Drift struct {
	Key         entity.BucketKey
	Incremental decimal.Decimal
	Reconciled  decimal.Decimal
}

// DriftCheckOutput represents the result of a drift check.
type DriftCheckOutput struct {
	Drifts    []Drift
	Reconcile *ReconcileOutput
}

// DriftCheckUseCase snapshots the incremental rollups, reconciles, and reports
// every bucket that changed. A drift is a finding, not an error.
type DriftCheckUseCase struct {
	source    adapter.ReconciliationSource
	rollups   adapter.RollupRepository
	reconcile *ReconcileUseCase
}

// NewDriftCheckUseCase creates a new DriftCheckUseCase instance.
func NewDriftCheckUseCase(source adapter.ReconciliationSource, rollups adapter.RollupRepository, reconcile *ReconcileUseCase) *DriftCheckUseCase {
	return &DriftCheckUseCase{
		source:    source,
		rollups:   rollups,
		reconcile: reconcile,
	}
}

// Execute runs the drift check.
func (uc *DriftCheckUseCase) Execute(ctx context.Context, input ReconcileInput) (*DriftCheckOutput, error) {
	propertyIDs, err := uc.properties(ctx, input)
	if err != nil {
		return nil, err
	}

	before, err := uc.snapshot(ctx, propertyIDs)
	if err != nil {
		return nil, err
	}

	reconciled, err := uc.reconcile.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	after, err := uc.snapshot(ctx, propertyIDs)
	if err != nil {
		return nil, err
	}

	return &DriftCheckOutput{
		Drifts:    diff(before, after),
		Reconcile: reconciled,
	}, nil
}

func (uc *DriftCheckUseCase) properties(ctx context.Context, input ReconcileInput) ([]uuid.UUID, error) {
	if input.PropertyID != nil {
		return []uuid.UUID{*input.PropertyID}, nil
	}
	ids, err := uc.source.ListPropertyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return ids, nil
}

type snapshotEntry struct {
	key   entity.BucketKey
	value decimal.Decimal
}

func (uc *DriftCheckUseCase) snapshot(ctx context.Context, propertyIDs []uuid.UUID) (map[string]snapshotEntry, error) {
	out := make(map[string]snapshotEntry)
	for _, id := range propertyIDs {
		records, err := uc.rollups.ListByProperty(ctx, id, entity.ReconciledKinds)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot rollups of property %s: %w", id, err)
		}
		for _, r := range records {
			out[r.BucketKey.String()] = snapshotEntry{key: r.BucketKey, value: r.Value}
		}
	}
	return out, nil
}

func diff(before, after map[string]snapshotEntry) []Drift {
	drifts := []Drift{}
	for name, b := range before {
		a, ok := after[name]
		if !ok {
			if !b.value.IsZero() {
				drifts = append(drifts, Drift{Key: b.key, Incremental: b.value, Reconciled: decimal.Zero})
			}
			continue
		}
		if !a.value.Equal(b.value) {
			drifts = append(drifts, Drift{Key: b.key, Incremental: b.value, Reconciled: a.value})
		}
	}
	for name, a := range after {
		if _, ok := before[name]; ok || a.value.IsZero() {
			continue
		}
		drifts = append(drifts, Drift{Key: a.key, Incremental: decimal.Zero, Reconciled: a.value})
	}

	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].Key.PropertyID != drifts[j].Key.PropertyID {
			return drifts[i].Key.PropertyID.String() < drifts[j].Key.PropertyID.String()
		}
		return lessKey(drifts[i].Key, drifts[j].Key)
	})
	return drifts
}
