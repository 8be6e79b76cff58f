package rollup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/persistence/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int {
	return &v
}

func kindPtr(k entity.StatisticKind) *entity.StatisticKind {
	return &k
}

func acceptedEntry(propertyID uuid.UUID, kind entity.EntryKind, amount string, ledgerDate, accountingDate time.Time) *entity.LedgerEntry {
	e := entity.NewLedgerEntry(propertyID, kind, dec(amount), ledgerDate, accountingDate, "", nil)
	e.ID = 1
	e.Status = entity.EntryStatusAccepted
	return e
}

// value reads one bucket through the public query path.
func value(t *testing.T, a *Aggregator, propertyID uuid.UUID, kind entity.StatisticKind, year, month *int) string {
	t.Helper()
	records, err := a.Query(context.Background(), Query{PropertyID: propertyID, Kind: &kind, Year: year, Month: month})
	require.NoError(t, err)
	require.Len(t, records, 1)
	return records[0].Value.StringFixed(2)
}

func TestAggregator_OnEntryAccepted(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	require.NoError(t, a.OnEntryAccepted(ctx, acceptedEntry(property, entity.EntryKindIncome, "100", day(2024, 3, 15), day(2024, 3, 15))))

	for _, kind := range []entity.StatisticKind{entity.StatisticIncome, entity.StatisticBalance} {
		assert.Equal(t, "100.00", value(t, a, property, kind, nil, nil), kind)
		assert.Equal(t, "100.00", value(t, a, property, kind, intPtr(2024), nil), kind)
		assert.Equal(t, "100.00", value(t, a, property, kind, intPtr(2024), intPtr(3)), kind)
	}
	assert.Equal(t, "0.00", value(t, a, property, entity.StatisticExpense, nil, nil))
}

func TestAggregator_ExpenseStoresMagnitude(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	require.NoError(t, a.OnEntryAccepted(ctx, acceptedEntry(property, entity.EntryKindExpense, "-40", day(2024, 3, 1), day(2024, 3, 1))))
	require.NoError(t, a.OnEntryAccepted(ctx, acceptedEntry(property, entity.EntryKindWithdrawal, "-10.005", day(2024, 3, 1), day(2024, 3, 1))))

	assert.Equal(t, "40.00", value(t, a, property, entity.StatisticExpense, nil, nil))
	assert.Equal(t, "10.01", value(t, a, property, entity.StatisticWithdraw, nil, nil))
	assert.Equal(t, "-50.01", value(t, a, property, entity.StatisticBalance, nil, nil))
}

func TestAggregator_BucketsByRelevantDate(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	// Booked on the ledger in March, accounted for in April.
	require.NoError(t, a.OnEntryAccepted(ctx, acceptedEntry(property, entity.EntryKindIncome, "100", day(2024, 3, 31), day(2024, 4, 2))))

	assert.Equal(t, "0.00", value(t, a, property, entity.StatisticIncome, intPtr(2024), intPtr(3)))
	assert.Equal(t, "100.00", value(t, a, property, entity.StatisticIncome, intPtr(2024), intPtr(4)))
	assert.Equal(t, "100.00", value(t, a, property, entity.StatisticBalance, intPtr(2024), intPtr(3)))
	assert.Equal(t, "0.00", value(t, a, property, entity.StatisticBalance, intPtr(2024), intPtr(4)))
}

func TestAggregator_OnDatesChanged_MovesMonth(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	entry := acceptedEntry(property, entity.EntryKindIncome, "100", day(2024, 3, 15), day(2024, 3, 15))
	require.NoError(t, a.OnEntryAccepted(ctx, entry))

	oldDate := entry.AccountingDate
	entry.AccountingDate = day(2024, 4, 15)
	event := entity.NewLedgerEvent(entity.EventEntryDateChanged, entry)
	event.OldAccountingDate = &oldDate
	event.OldLedgerDate = &entry.LedgerDate
	require.NoError(t, a.OnDatesChanged(ctx, event))

	assert.Equal(t, "0.00", value(t, a, property, entity.StatisticIncome, intPtr(2024), intPtr(3)))
	assert.Equal(t, "100.00", value(t, a, property, entity.StatisticIncome, intPtr(2024), intPtr(4)))
	assert.Equal(t, "100.00", value(t, a, property, entity.StatisticIncome, intPtr(2024), nil))
	assert.Equal(t, "100.00", value(t, a, property, entity.StatisticIncome, nil, nil))

	// The ledger date did not move, so BALANCE stays in March.
	assert.Equal(t, "100.00", value(t, a, property, entity.StatisticBalance, intPtr(2024), intPtr(3)))
}

func TestAggregator_OnDatesChanged_MovesYear(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	entry := acceptedEntry(property, entity.EntryKindDeposit, "500", day(2023, 12, 31), day(2023, 12, 31))
	require.NoError(t, a.OnEntryAccepted(ctx, entry))

	oldLedger, oldAccounting := entry.LedgerDate, entry.AccountingDate
	entry.LedgerDate = day(2024, 1, 1)
	entry.AccountingDate = day(2024, 1, 1)
	event := entity.NewLedgerEvent(entity.EventEntryDateChanged, entry)
	event.OldLedgerDate = &oldLedger
	event.OldAccountingDate = &oldAccounting
	require.NoError(t, a.OnDatesChanged(ctx, event))

	for _, kind := range []entity.StatisticKind{entity.StatisticDeposit, entity.StatisticBalance} {
		assert.Equal(t, "0.00", value(t, a, property, kind, intPtr(2023), nil), kind)
		assert.Equal(t, "0.00", value(t, a, property, kind, intPtr(2023), intPtr(12)), kind)
		assert.Equal(t, "500.00", value(t, a, property, kind, intPtr(2024), nil), kind)
		assert.Equal(t, "500.00", value(t, a, property, kind, intPtr(2024), intPtr(1)), kind)
		assert.Equal(t, "500.00", value(t, a, property, kind, nil, nil), kind)
	}
}

func TestAggregator_OnEntryAmended(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	entry := acceptedEntry(property, entity.EntryKindIncome, "100", day(2024, 3, 15), day(2024, 3, 15))
	require.NoError(t, a.OnEntryAccepted(ctx, entry))

	oldAmount, oldDate := entry.Amount, entry.AccountingDate
	entry.Amount = dec("150")
	entry.AccountingDate = day(2024, 4, 1)
	event := entity.NewLedgerEvent(entity.EventEntryAmended, entry)
	event.OldAmount = &oldAmount
	event.OldAccountingDate = &oldDate
	event.OldLedgerDate = &entry.LedgerDate
	require.NoError(t, a.OnEntryAmended(ctx, event))

	assert.Equal(t, "0.00", value(t, a, property, entity.StatisticIncome, intPtr(2024), intPtr(3)))
	assert.Equal(t, "150.00", value(t, a, property, entity.StatisticIncome, intPtr(2024), intPtr(4)))
	assert.Equal(t, "150.00", value(t, a, property, entity.StatisticIncome, nil, nil))
	assert.Equal(t, "150.00", value(t, a, property, entity.StatisticBalance, intPtr(2024), intPtr(3)))
}

func TestAggregator_OnAmountChangedAndDeleted(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	entry := acceptedEntry(property, entity.EntryKindExpense, "-100", day(2024, 5, 5), day(2024, 5, 5))
	require.NoError(t, a.OnEntryAccepted(ctx, entry))

	oldAmount := entry.Amount
	entry.Amount = dec("-80")
	require.NoError(t, a.OnAmountChanged(ctx, entry, oldAmount))
	assert.Equal(t, "80.00", value(t, a, property, entity.StatisticExpense, intPtr(2024), intPtr(5)))
	assert.Equal(t, "-80.00", value(t, a, property, entity.StatisticBalance, nil, nil))

	require.NoError(t, a.OnEntryDeleted(ctx, entry))
	assert.Equal(t, "0.00", value(t, a, property, entity.StatisticExpense, nil, nil))
	assert.Equal(t, "0.00", value(t, a, property, entity.StatisticBalance, intPtr(2024), intPtr(5)))
}

func TestAggregator_Additivity(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	dates := []time.Time{day(2023, 11, 2), day(2023, 12, 30), day(2024, 1, 3), day(2024, 1, 20), day(2024, 6, 9)}
	for i, d := range dates {
		amount := decimal.NewFromInt(int64(10 * (i + 1))).String()
		require.NoError(t, a.OnEntryAccepted(ctx, acceptedEntry(property, entity.EntryKindIncome, amount, d, d)))
	}

	kind := entity.StatisticIncome
	allTime := dec(value(t, a, property, kind, nil, nil))
	sumYears := decimal.Zero
	for _, year := range []int{2023, 2024} {
		yearly := dec(value(t, a, property, kind, intPtr(year), nil))
		sumMonths := decimal.Zero
		for month := 1; month <= 12; month++ {
			sumMonths = sumMonths.Add(dec(value(t, a, property, kind, intPtr(year), intPtr(month))))
		}
		assert.True(t, yearly.Equal(sumMonths), "year %d: %s != %s", year, yearly, sumMonths)
		sumYears = sumYears.Add(yearly)
	}
	assert.True(t, allTime.Equal(sumYears))
	assert.Equal(t, "150.00", allTime.StringFixed(2))
}

func TestAggregator_ZeroDeltaSkipsStore(t *testing.T) {
	store := memory.NewRollups()
	a := NewAggregator(store)

	require.NoError(t, a.ApplyDelta(context.Background(), uuid.New(), entity.StatisticIncome, day(2024, 1, 1), dec("0.001")))
	assert.Equal(t, 0, store.Upserts())
}

func TestAggregator_Query_ListWithoutKind(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	require.NoError(t, a.OnEntryAccepted(ctx, acceptedEntry(property, entity.EntryKindIncome, "100", day(2024, 3, 15), day(2024, 3, 15))))

	records, err := a.Query(ctx, Query{PropertyID: property, Year: intPtr(2024)})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, entity.StatisticBalance, records[0].Kind)
	assert.Equal(t, entity.StatisticIncome, records[1].Kind)

	records, err = a.Query(ctx, Query{PropertyID: uuid.New()})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestAggregator_Query_Validation(t *testing.T) {
	a := NewAggregator(memory.NewRollups())
	property := uuid.New()

	tests := []struct {
		name  string
		query Query
		want  error
	}{
		{"unknown kind", Query{PropertyID: property, Kind: kindPtr("RENT")}, domainerror.ErrInvalidStatisticKind},
		{"month without year", Query{PropertyID: property, Month: intPtr(3)}, domainerror.ErrInvalidBucket},
		{"month out of range", Query{PropertyID: property, Year: intPtr(2024), Month: intPtr(13)}, domainerror.ErrInvalidBucket},
		{"month zero", Query{PropertyID: property, Year: intPtr(2024), Month: intPtr(0)}, domainerror.ErrInvalidBucket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Query(context.Background(), tt.query)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))

			var rollupErr *domainerror.RollupError
			assert.True(t, errors.As(err, &rollupErr))
		})
	}
}
