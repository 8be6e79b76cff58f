package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyledger/backend/internal/application/usecase/ledger"
	"github.com/propertyledger/backend/internal/application/usecase/rollup"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/lock"
	"github.com/propertyledger/backend/internal/integration/persistence/memory"
)

type harness struct {
	entries    *memory.LedgerEntries
	rollups    *memory.Rollups
	aggregator *rollup.Aggregator
	reconcile  *ReconcileUseCase
	drift      *DriftCheckUseCase
}

func newHarness() *harness {
	entries := memory.NewLedgerEntries()
	rollups := memory.NewRollups()
	reconcile := NewReconcileUseCase(entries, rollups, 2)
	return &harness{
		entries:    entries,
		rollups:    rollups,
		aggregator: rollup.NewAggregator(rollups),
		reconcile:  reconcile,
		drift:      NewDriftCheckUseCase(entries, rollups, reconcile),
	}
}

// record stores an entry and, when accepted, feeds it to the aggregator the
// way the event router would.
func (h *harness) record(t *testing.T, propertyID uuid.UUID, kind entity.EntryKind, amount string, date time.Time, accept bool) *entity.LedgerEntry {
	t.Helper()
	ctx := context.Background()
	e := entity.NewLedgerEntry(propertyID, kind, decimal.RequireFromString(amount), date, date, "", nil)
	require.NoError(t, h.entries.Create(ctx, e))
	if accept {
		require.True(t, e.Accept())
		require.NoError(t, h.entries.Update(ctx, e))
		require.NoError(t, h.aggregator.OnEntryAccepted(ctx, e))
	}
	return e
}

func (h *harness) snapshot(t *testing.T, propertyID uuid.UUID) map[string]string {
	t.Helper()
	records, err := h.rollups.ListByProperty(context.Background(), propertyID, entity.AllStatisticKinds)
	require.NoError(t, err)
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.BucketKey.String()] = r.Value.StringFixed(2)
	}
	return out
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestReconcile_AgreesWithIncremental(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	property := uuid.New()

	h.record(t, property, entity.EntryKindIncome, "1200", day(2024, 1, 5), true)
	h.record(t, property, entity.EntryKindExpense, "-300.50", day(2024, 1, 20), true)
	h.record(t, property, entity.EntryKindDeposit, "1000", day(2023, 12, 1), true)
	h.record(t, property, entity.EntryKindWithdrawal, "-250", day(2024, 2, 14), true)
	h.record(t, property, entity.EntryKindIncome, "999", day(2024, 2, 1), false)

	before := h.snapshot(t, property)

	out, err := h.drift.Execute(ctx, ReconcileInput{PropertyID: &property})
	require.NoError(t, err)
	assert.Empty(t, out.Drifts)
	assert.Equal(t, before, h.snapshot(t, property))
	assert.Equal(t, "1200.00", out.Reconcile.Kinds[entity.StatisticIncome].Total.StringFixed(2))
	assert.Equal(t, "300.50", out.Reconcile.Kinds[entity.StatisticExpense].Total.StringFixed(2))
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	first, second := uuid.New(), uuid.New()

	h.record(t, first, entity.EntryKindIncome, "100", day(2024, 3, 1), true)
	h.record(t, second, entity.EntryKindExpense, "-40", day(2024, 4, 1), true)

	out, err := h.reconcile.Execute(ctx, ReconcileInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Properties)
	afterFirst := map[uuid.UUID]map[string]string{first: h.snapshot(t, first), second: h.snapshot(t, second)}

	out, err = h.reconcile.Execute(ctx, ReconcileInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), out.RowsRemoved)
	assert.Equal(t, 6, out.RowsWritten)
	assert.Equal(t, afterFirst[first], h.snapshot(t, first))
	assert.Equal(t, afterFirst[second], h.snapshot(t, second))
}

func TestReconcile_LeavesBalanceRollups(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	property := uuid.New()

	h.record(t, property, entity.EntryKindIncome, "100", day(2024, 3, 1), true)
	require.NoError(t, h.rollups.UpsertAdd(ctx, entity.AllTimeBucket(property, entity.StatisticBalance), decimal.RequireFromString("5")))

	_, err := h.reconcile.Execute(ctx, ReconcileInput{PropertyID: &property})
	require.NoError(t, err)

	record, err := h.rollups.Find(ctx, entity.AllTimeBucket(property, entity.StatisticBalance))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "105.00", record.Value.StringFixed(2))
}

func TestReconcile_RemovesRowsOfDeletedEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	property := uuid.New()

	gone := h.record(t, property, entity.EntryKindIncome, "100", day(2024, 3, 1), true)
	require.NoError(t, h.entries.Delete(ctx, gone.ID))

	out, err := h.reconcile.Execute(ctx, ReconcileInput{PropertyID: &property})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.RowsRemoved)
	assert.Equal(t, 0, out.RowsWritten)

	records, err := h.rollups.ListByProperty(ctx, property, entity.ReconciledKinds)
	require.NoError(t, err)
	assert.Empty(t, records)
}

// aggregatingPublisher feeds deletions straight to the aggregator.
type aggregatingPublisher struct {
	aggregator *rollup.Aggregator
}

func (p aggregatingPublisher) Publish(ctx context.Context, event *entity.LedgerEvent) error {
	if event.Type != entity.EventEntryDeleted {
		return nil
	}
	return p.aggregator.OnEntryDeleted(ctx, event.Entry())
}

func TestReconcile_AgreesAfterParentDeletion(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	owner, property := uuid.New(), uuid.New()
	properties := memory.NewProperties()
	require.NoError(t, properties.Create(ctx, &entity.Property{ID: property, OwnerID: owner, Name: "Flat 3B"}))

	parent := h.record(t, property, entity.EntryKindIncome, "100", day(2024, 3, 1), true)
	child := entity.NewLedgerEntry(property, entity.EntryKindExpense, decimal.RequireFromString("-40"), day(2024, 3, 2), day(2024, 3, 2), "", &parent.ID)
	require.NoError(t, h.entries.Create(ctx, child))
	require.True(t, child.Accept())
	require.NoError(t, h.entries.Update(ctx, child))
	require.NoError(t, h.aggregator.OnEntryAccepted(ctx, child))

	remove := ledger.NewDeleteEntryUseCase(h.entries, properties, lock.NewKeyedLocker(), aggregatingPublisher{h.aggregator})
	require.NoError(t, remove.Execute(ctx, ledger.DeleteEntryInput{UserID: owner, EntryID: parent.ID}))
	assert.Empty(t, h.entries.All(property))

	expenseAllTime, err := h.rollups.Find(ctx, entity.AllTimeBucket(property, entity.StatisticExpense))
	require.NoError(t, err)
	require.NotNil(t, expenseAllTime)
	assert.Equal(t, "0.00", expenseAllTime.Value.StringFixed(2))

	out, err := h.drift.Execute(ctx, ReconcileInput{PropertyID: &property})
	require.NoError(t, err)
	assert.Empty(t, out.Drifts)
}

func TestReconcile_CashSplitCountsWithoutAcceptedParent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	property := uuid.New()

	parent := h.record(t, property, entity.EntryKindIncome, "500", day(2024, 5, 1), false)
	deposit := entity.NewLedgerEntry(property, entity.EntryKindDeposit, decimal.RequireFromString("200"), day(2024, 5, 3), day(2024, 5, 3), "", &parent.ID)
	require.NoError(t, h.entries.Create(ctx, deposit))
	require.True(t, deposit.Accept())
	require.NoError(t, h.entries.Update(ctx, deposit))
	require.NoError(t, h.aggregator.OnEntryAccepted(ctx, deposit))

	out, err := h.drift.Execute(ctx, ReconcileInput{PropertyID: &property})
	require.NoError(t, err)
	assert.Empty(t, out.Drifts)
	assert.Equal(t, "200.00", out.Reconcile.Kinds[entity.StatisticDeposit].Total.StringFixed(2))
}

func TestDriftCheck_ReportsAndRepairs(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	property := uuid.New()

	h.record(t, property, entity.EntryKindIncome, "100", day(2024, 3, 1), true)
	// A lost delta on the monthly bucket.
	require.NoError(t, h.rollups.UpsertAdd(ctx, entity.MonthBucket(property, entity.StatisticIncome, 2024, 3), decimal.RequireFromString("-100")))

	out, err := h.drift.Execute(ctx, ReconcileInput{PropertyID: &property})
	require.NoError(t, err)
	require.Len(t, out.Drifts, 1)
	assert.Equal(t, entity.GranularityMonthly, out.Drifts[0].Key.Granularity())
	assert.Equal(t, "0.00", out.Drifts[0].Incremental.StringFixed(2))
	assert.Equal(t, "100.00", out.Drifts[0].Reconciled.StringFixed(2))

	out, err = h.drift.Execute(ctx, ReconcileInput{PropertyID: &property})
	require.NoError(t, err)
	assert.Empty(t, out.Drifts)
}

func TestBuildRollups(t *testing.T) {
	property := uuid.New()
	accepted := func(kind entity.EntryKind, amount string, ledgerDate, accountingDate time.Time) *entity.LedgerEntry {
		e := entity.NewLedgerEntry(property, kind, decimal.RequireFromString(amount), ledgerDate, accountingDate, "", nil)
		e.Status = entity.EntryStatusAccepted
		return e
	}
	pending := entity.NewLedgerEntry(property, entity.EntryKindIncome, decimal.RequireFromString("50"), day(2024, 1, 1), day(2024, 1, 1), "", nil)

	records := BuildRollups(property, []*entity.LedgerEntry{
		accepted(entity.EntryKindIncome, "100", day(2024, 3, 31), day(2024, 4, 1)),
		accepted(entity.EntryKindExpense, "-20", day(2024, 4, 2), day(2024, 4, 2)),
		accepted(entity.EntryKindExpense, "5", day(2024, 4, 9), day(2024, 4, 9)),
		pending,
	})

	got := make([]string, len(records))
	for i, r := range records {
		got[i] = r.BucketKey.String()[len(property.String())+1:] + "=" + r.Value.StringFixed(2)
	}
	assert.Equal(t, []string{
		"EXPENSE/all=15.00",
		"EXPENSE/2024=15.00",
		"EXPENSE/2024-04=15.00",
		"INCOME/all=100.00",
		"INCOME/2024=100.00",
		"INCOME/2024-04=100.00",
	}, got)
}

func TestBuildRollups_Empty(t *testing.T) {
	assert.Empty(t, BuildRollups(uuid.New(), nil))
}

type failingSource struct{}

func (failingSource) ListPropertyIDs(context.Context) ([]uuid.UUID, error) {
	return nil, errors.New("connection refused")
}

func (failingSource) ListContributingEntries(context.Context, uuid.UUID) ([]*entity.LedgerEntry, error) {
	return nil, errors.New("connection refused")
}

func TestReconcile_SourceFailure(t *testing.T) {
	uc := NewReconcileUseCase(failingSource{}, memory.NewRollups(), 0)

	_, err := uc.Execute(context.Background(), ReconcileInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerror.ErrReconciliationFailed))

	var recErr *domainerror.ReconciliationError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, domainerror.ErrCodeReconciliationSource, recErr.Code)
}
