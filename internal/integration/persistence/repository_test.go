package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/persistence/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbSQL, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	dbSQL.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbSQL.Close() })

	db, err := gorm.Open(sqlite.Dialector{Conn: dbSQL}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.PropertyModel{},
		&model.LedgerEntryModel{},
		&model.RollupRecordModel{},
	))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var march = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func createEntry(t *testing.T, repo interface {
	Create(context.Context, *entity.LedgerEntry) error
}, propertyID uuid.UUID, amount string, status entity.EntryStatus, parentID *int64) *entity.LedgerEntry {
	t.Helper()
	e := entity.NewLedgerEntry(propertyID, entity.EntryKindIncome, dec(amount), march, march, "rent", parentID)
	e.Status = status
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

func TestPropertyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository(newTestDB(t))
	owner := uuid.New()
	property := &entity.Property{ID: uuid.New(), OwnerID: owner, Name: "Flat 3B", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, property))

	ok, err := repo.IsOwner(ctx, owner, property.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsOwner(ctx, uuid.New(), property.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.IsOwner(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, domainerror.ErrPropertyNotFound)
}

func TestLedgerEntryRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerEntryRepository(newTestDB(t))
	property := uuid.New()

	first := createEntry(t, repo, property, "100", entity.EntryStatusPending, nil)
	second := createEntry(t, repo, property, "50.25", entity.EntryStatusPending, &first.ID)
	assert.Greater(t, second.ID, first.ID)

	found, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.25", found.Amount.StringFixed(2))
	require.NotNil(t, found.ParentID)
	assert.Equal(t, first.ID, *found.ParentID)
	assert.False(t, found.BalanceApplied)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, domainerror.ErrEntryNotFound)
}

func TestLedgerEntryRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerEntryRepository(newTestDB(t))
	e := createEntry(t, repo, uuid.New(), "100", entity.EntryStatusAccepted, nil)

	require.NoError(t, repo.Delete(ctx, e.ID))
	assert.ErrorIs(t, repo.Delete(ctx, e.ID), domainerror.ErrEntryNotFound)

	_, err := repo.FindByID(ctx, e.ID)
	assert.ErrorIs(t, err, domainerror.ErrEntryNotFound)

	gone, err := repo.FindAnyByID(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, gone.IsDeleted())

	assert.ErrorIs(t, repo.UpdateBalance(ctx, e.ID, dec("1")), domainerror.ErrEntryNotFound)
	assert.ErrorIs(t, repo.Update(ctx, e), domainerror.ErrEntryNotFound)
}

func TestLedgerEntryRepository_ListChildren(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerEntryRepository(newTestDB(t))
	property := uuid.New()

	parent := createEntry(t, repo, property, "100", entity.EntryStatusAccepted, nil)
	first := createEntry(t, repo, property, "30", entity.EntryStatusAccepted, &parent.ID)
	gone := createEntry(t, repo, property, "20", entity.EntryStatusPending, &parent.ID)
	second := createEntry(t, repo, property, "10", entity.EntryStatusPending, &parent.ID)
	createEntry(t, repo, property, "5", entity.EntryStatusPending, &first.ID)
	require.NoError(t, repo.Delete(ctx, gone.ID))

	children, err := repo.ListChildren(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, first.ID, children[0].ID)
	assert.Equal(t, second.ID, children[1].ID)

	children, err = repo.ListChildren(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestLedgerEntryRepository_Update_KeepsBalance(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerEntryRepository(newTestDB(t))
	e := createEntry(t, repo, uuid.New(), "100", entity.EntryStatusAccepted, nil)
	require.NoError(t, repo.UpdateBalance(ctx, e.ID, dec("100")))

	e.Amount = dec("120")
	e.Balance = dec("999")
	e.Description = "corrected"
	require.NoError(t, repo.Update(ctx, e))

	found, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.00", found.Amount.StringFixed(2))
	assert.Equal(t, "100.00", found.Balance.StringFixed(2))
	assert.True(t, found.BalanceApplied)
	assert.Equal(t, "corrected", found.Description)
}

func TestLedgerEntryRepository_Neighbours(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerEntryRepository(newTestDB(t))
	property, other := uuid.New(), uuid.New()

	a := createEntry(t, repo, property, "10", entity.EntryStatusAccepted, nil)
	pending := createEntry(t, repo, property, "20", entity.EntryStatusPending, nil)
	createEntry(t, repo, other, "30", entity.EntryStatusAccepted, nil)
	unapplied := createEntry(t, repo, property, "40", entity.EntryStatusAccepted, nil)
	c := createEntry(t, repo, property, "50", entity.EntryStatusAccepted, nil)

	require.NoError(t, repo.UpdateBalance(ctx, a.ID, dec("10")))
	require.NoError(t, repo.UpdateBalance(ctx, c.ID, dec("60")))

	prev, err := repo.FindPrecedingAccepted(ctx, property, c.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, a.ID, prev.ID)

	next, err := repo.FindFollowingAccepted(ctx, property, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, c.ID, next.ID, "unapplied entries are skipped")

	none, err := repo.FindPrecedingAccepted(ctx, property, a.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	latest, err := repo.FindLatestAccepted(ctx, property)
	require.NoError(t, err)
	assert.Equal(t, "60.00", latest.Balance.StringFixed(2))

	empty, err := repo.FindLatestAccepted(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, empty)

	page, err := repo.ListAcceptedAfter(ctx, property, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, unapplied.ID, page[0].ID)
	assert.False(t, page[0].BalanceApplied)
	assert.Equal(t, c.ID, page[1].ID)

	page, err = repo.ListAcceptedAfter(ctx, property, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, a.ID, page[0].ID)
}

func TestReconciliationRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	entries := NewLedgerEntryRepository(db)
	source := NewReconciliationRepository(db)
	property := uuid.New()

	acceptedParent := createEntry(t, entries, property, "100", entity.EntryStatusAccepted, nil)
	pendingParent := createEntry(t, entries, property, "200", entity.EntryStatusPending, nil)
	childOfAccepted := createEntry(t, entries, property, "30", entity.EntryStatusAccepted, &acceptedParent.ID)
	createEntry(t, entries, property, "40", entity.EntryStatusAccepted, &pendingParent.ID)
	createEntry(t, entries, property, "50", entity.EntryStatusPending, nil)
	deposit := entity.NewLedgerEntry(property, entity.EntryKindDeposit, dec("70"), march, march, "bond", &pendingParent.ID)
	deposit.Status = entity.EntryStatusAccepted
	require.NoError(t, entries.Create(ctx, deposit))
	deleted := createEntry(t, entries, uuid.New(), "60", entity.EntryStatusAccepted, nil)
	require.NoError(t, entries.Delete(ctx, deleted.ID))

	contributing, err := source.ListContributingEntries(ctx, property)
	require.NoError(t, err)
	ids := make([]int64, len(contributing))
	for i, e := range contributing {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{acceptedParent.ID, childOfAccepted.ID, deposit.ID}, ids)

	properties, err := source.ListPropertyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{property}, properties)
}

func TestRollupRepository_UpsertAdd(t *testing.T) {
	ctx := context.Background()
	repo := NewRollupRepository(newTestDB(t))
	property := uuid.New()
	keys := entity.BucketsForDate(property, entity.StatisticIncome, march)

	for _, delta := range []string{"100.10", "0.20", "-50"} {
		for _, key := range keys {
			require.NoError(t, repo.UpsertAdd(ctx, key, dec(delta)))
		}
	}

	for _, key := range keys {
		record, err := repo.Find(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, record, key.String())
		assert.Equal(t, "50.30", record.Value.StringFixed(2), key.String())
		assert.Equal(t, key.Granularity(), record.Granularity())
	}

	missing, err := repo.Find(ctx, entity.AllTimeBucket(property, entity.StatisticExpense))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRollupRepository_PutListDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRollupRepository(newTestDB(t))
	property, other := uuid.New(), uuid.New()

	require.NoError(t, repo.UpsertAdd(ctx, entity.YearBucket(property, entity.StatisticIncome, 2024), dec("1")))
	require.NoError(t, repo.UpsertAdd(ctx, entity.YearBucket(property, entity.StatisticBalance, 2024), dec("7")))
	require.NoError(t, repo.Put(ctx, []*entity.RollupRecord{
		{BucketKey: entity.YearBucket(property, entity.StatisticIncome, 2024), Value: dec("300")},
		{BucketKey: entity.YearBucket(property, entity.StatisticExpense, 2024), Value: dec("80")},
		{BucketKey: entity.MonthBucket(property, entity.StatisticExpense, 2024, 2), Value: dec("80")},
		{BucketKey: entity.YearBucket(other, entity.StatisticIncome, 2024), Value: dec("5")},
	}))

	year := 2024
	yearly, err := repo.List(ctx, entity.RollupFilter{PropertyID: property, Year: &year})
	require.NoError(t, err)
	require.Len(t, yearly, 3)
	assert.Equal(t, entity.StatisticBalance, yearly[0].Kind)
	assert.Equal(t, entity.StatisticExpense, yearly[1].Kind)
	assert.Equal(t, entity.StatisticIncome, yearly[2].Kind)
	assert.Equal(t, "300.00", yearly[2].Value.StringFixed(2))

	expense := entity.StatisticExpense
	filtered, err := repo.List(ctx, entity.RollupFilter{PropertyID: property, Kind: &expense, Year: &year})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	all, err := repo.ListByProperty(ctx, property, entity.ReconciledKinds)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	removed, err := repo.DeleteKinds(ctx, &property, entity.ReconciledKinds)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	remaining, err := repo.ListByProperty(ctx, property, entity.AllStatisticKinds)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, entity.StatisticBalance, remaining[0].Kind)

	removed, err = repo.DeleteKinds(ctx, nil, entity.ReconciledKinds)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
