package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/lock"
	"github.com/propertyledger/backend/internal/integration/persistence/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*entity.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *entity.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []entity.LedgerEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.LedgerEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() *entity.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type ledgerFixture struct {
	entries   *memory.LedgerEntries
	publisher *recordingPublisher
	owner     uuid.UUID
	property  uuid.UUID
	create    *CreateEntryUseCase
	accept    *AcceptEntryUseCase
	update    *UpdateEntryUseCase
	delete    *DeleteEntryUseCase
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	entries := memory.NewLedgerEntries()
	properties := memory.NewProperties()
	publisher := &recordingPublisher{}
	locker := lock.NewKeyedLocker()

	f := &ledgerFixture{
		entries:   entries,
		publisher: publisher,
		owner:     uuid.New(),
		property:  uuid.New(),
		create:    NewCreateEntryUseCase(entries, properties, publisher),
		accept:    NewAcceptEntryUseCase(entries, properties, locker, publisher),
		update:    NewUpdateEntryUseCase(entries, properties, locker, publisher),
		delete:    NewDeleteEntryUseCase(entries, properties, locker, publisher),
	}
	require.NoError(t, properties.Create(context.Background(), &entity.Property{
		ID:      f.property,
		OwnerID: f.owner,
		Name:    "Flat 3B",
	}))
	return f
}

var march15 = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func (f *ledgerFixture) newEntry(t *testing.T, kind entity.EntryKind, amount string, parentID *int64) *EntryOutput {
	t.Helper()
	out, err := f.create.Execute(context.Background(), CreateEntryInput{
		UserID:     f.owner,
		PropertyID: f.property,
		Kind:       kind,
		Amount:     decimal.RequireFromString(amount),
		LedgerDate: march15,
		ParentID:   parentID,
	})
	require.NoError(t, err)
	return out.Entry
}

func (f *ledgerFixture) acceptEntry(t *testing.T, id int64) {
	t.Helper()
	_, err := f.accept.Execute(context.Background(), AcceptEntryInput{UserID: f.owner, EntryID: id})
	require.NoError(t, err)
}

func ledgerCode(t *testing.T, err error) domainerror.LedgerErrorCode {
	t.Helper()
	var ledgerErr *domainerror.LedgerError
	require.True(t, errors.As(err, &ledgerErr), "expected LedgerError, got %v", err)
	return ledgerErr.Code
}

func TestCreateEntry(t *testing.T) {
	f := newLedgerFixture(t)

	entry := f.newEntry(t, entity.EntryKindIncome, "1200.456", nil)

	assert.Equal(t, entity.EntryStatusPending, entry.Status)
	assert.Equal(t, "1200.46", entry.Amount.StringFixed(2))
	assert.True(t, entry.AccountingDate.Equal(march15), "accounting date defaults to the ledger date")
	assert.Equal(t, []entity.LedgerEventType{entity.EventEntryCreated}, f.publisher.types())
}

func TestCreateEntry_Validation(t *testing.T) {
	f := newLedgerFixture(t)
	long := make([]byte, MaxDescriptionLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name  string
		input CreateEntryInput
		want  domainerror.LedgerErrorCode
	}{
		{
			name:  "unknown kind",
			input: CreateEntryInput{Kind: "rent", Amount: decimal.NewFromInt(1), LedgerDate: march15},
			want:  domainerror.ErrCodeInvalidEntryKind,
		},
		{
			name:  "zero amount",
			input: CreateEntryInput{Kind: entity.EntryKindIncome, Amount: decimal.RequireFromString("0.004"), LedgerDate: march15},
			want:  domainerror.ErrCodeInvalidAmount,
		},
		{
			name:  "missing ledger date",
			input: CreateEntryInput{Kind: entity.EntryKindIncome, Amount: decimal.NewFromInt(1)},
			want:  domainerror.ErrCodeInvalidEntryDate,
		},
		{
			name:  "description too long",
			input: CreateEntryInput{Kind: entity.EntryKindIncome, Amount: decimal.NewFromInt(1), LedgerDate: march15, Description: string(long)},
			want:  domainerror.ErrCodeDescriptionLong,
		},
		{
			name:  "unknown parent",
			input: CreateEntryInput{Kind: entity.EntryKindIncome, Amount: decimal.NewFromInt(1), LedgerDate: march15, ParentID: func() *int64 { id := int64(42); return &id }()},
			want:  domainerror.ErrCodeParentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.UserID = f.owner
			tt.input.PropertyID = f.property
			_, err := f.create.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.want, ledgerCode(t, err))
		})
	}
	assert.Empty(t, f.publisher.types())
}

func TestCreateEntry_Ownership(t *testing.T) {
	f := newLedgerFixture(t)
	input := CreateEntryInput{
		UserID:     uuid.New(),
		PropertyID: f.property,
		Kind:       entity.EntryKindIncome,
		Amount:     decimal.NewFromInt(10),
		LedgerDate: march15,
	}

	_, err := f.create.Execute(context.Background(), input)
	assert.True(t, errors.Is(err, domainerror.ErrNotPropertyOwner))

	input.UserID = f.owner
	input.PropertyID = uuid.New()
	_, err = f.create.Execute(context.Background(), input)
	assert.True(t, errors.Is(err, domainerror.ErrPropertyNotFound))
}

func TestAcceptEntry(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	entry := f.newEntry(t, entity.EntryKindExpense, "-80", nil)

	out, err := f.accept.Execute(ctx, AcceptEntryInput{UserID: f.owner, EntryID: entry.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.EntryStatusAccepted, out.Entry.Status)

	event := f.publisher.last()
	assert.Equal(t, entity.EventEntryAccepted, event.Type)
	assert.Equal(t, entry.ID, event.EntryID)
	assert.Equal(t, "-80.00", event.Amount.StringFixed(2))
	assert.True(t, event.Standalone)

	_, err = f.accept.Execute(ctx, AcceptEntryInput{UserID: f.owner, EntryID: entry.ID})
	assert.Equal(t, domainerror.ErrCodeEntryNotPending, ledgerCode(t, err))
}

func TestAcceptEntry_SplitNeedsAcceptedParent(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	parent := f.newEntry(t, entity.EntryKindIncome, "100", nil)
	child := f.newEntry(t, entity.EntryKindIncome, "40", &parent.ID)

	_, err := f.accept.Execute(ctx, AcceptEntryInput{UserID: f.owner, EntryID: child.ID})
	assert.Equal(t, domainerror.ErrCodeParentNotAccepted, ledgerCode(t, err))

	f.acceptEntry(t, parent.ID)
	f.acceptEntry(t, child.ID)
	assert.False(t, f.publisher.last().Standalone)
}

func TestAcceptEntry_NotFoundAndOwnership(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	_, err := f.accept.Execute(ctx, AcceptEntryInput{UserID: f.owner, EntryID: 99})
	assert.Equal(t, domainerror.ErrCodeEntryNotFound, ledgerCode(t, err))

	entry := f.newEntry(t, entity.EntryKindIncome, "10", nil)
	_, err = f.accept.Execute(ctx, AcceptEntryInput{UserID: uuid.New(), EntryID: entry.ID})
	assert.True(t, errors.Is(err, domainerror.ErrNotPropertyOwner))
}

func TestUpdateEntry_EventSelection(t *testing.T) {
	april2 := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("150")
	description := "new roof"

	tests := []struct {
		name  string
		input UpdateEntryInput
		want  entity.LedgerEventType
	}{
		{"amount", UpdateEntryInput{Amount: &amount}, entity.EventEntryAmountChanged},
		{"accounting date", UpdateEntryInput{AccountingDate: &april2}, entity.EventEntryDateChanged},
		{"amount and date", UpdateEntryInput{Amount: &amount, LedgerDate: &april2}, entity.EventEntryAmended},
		{"description only", UpdateEntryInput{Description: &description}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			entry := f.newEntry(t, entity.EntryKindIncome, "100", nil)
			f.acceptEntry(t, entry.ID)
			published := len(f.publisher.types())

			tt.input.UserID = f.owner
			tt.input.EntryID = entry.ID
			out, err := f.update.Execute(context.Background(), tt.input)
			require.NoError(t, err)

			if tt.want == "" {
				assert.Nil(t, out.Event)
				assert.Len(t, f.publisher.types(), published)
				return
			}
			require.NotNil(t, out.Event)
			assert.Equal(t, tt.want, out.Event.Type)
			assert.Equal(t, tt.want, f.publisher.last().Type)
			assert.Equal(t, "100.00", out.Event.PreviousAmount().StringFixed(2))
			assert.True(t, out.Event.PreviousLedgerDate().Equal(march15))
			assert.True(t, out.Event.PreviousAccountingDate().Equal(march15))
		})
	}
}

func TestUpdateEntry_PendingEmitsNothing(t *testing.T) {
	f := newLedgerFixture(t)
	entry := f.newEntry(t, entity.EntryKindIncome, "100", nil)
	amount := decimal.RequireFromString("120")

	out, err := f.update.Execute(context.Background(), UpdateEntryInput{UserID: f.owner, EntryID: entry.ID, Amount: &amount})
	require.NoError(t, err)
	assert.Nil(t, out.Event)
	assert.Equal(t, "120.00", out.Entry.Amount.StringFixed(2))
	assert.Equal(t, []entity.LedgerEventType{entity.EventEntryCreated}, f.publisher.types())
}

func TestUpdateEntry_RejectsZeroAmount(t *testing.T) {
	f := newLedgerFixture(t)
	entry := f.newEntry(t, entity.EntryKindIncome, "100", nil)
	zero := decimal.Zero

	_, err := f.update.Execute(context.Background(), UpdateEntryInput{UserID: f.owner, EntryID: entry.ID, Amount: &zero})
	assert.Equal(t, domainerror.ErrCodeInvalidAmount, ledgerCode(t, err))
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	pending := f.newEntry(t, entity.EntryKindIncome, "10", nil)
	accepted := f.newEntry(t, entity.EntryKindIncome, "20", nil)
	f.acceptEntry(t, accepted.ID)

	require.NoError(t, f.delete.Execute(ctx, DeleteEntryInput{UserID: f.owner, EntryID: pending.ID}))
	assert.NotEqual(t, entity.EventEntryDeleted, f.publisher.last().Type)

	require.NoError(t, f.delete.Execute(ctx, DeleteEntryInput{UserID: f.owner, EntryID: accepted.ID}))
	event := f.publisher.last()
	assert.Equal(t, entity.EventEntryDeleted, event.Type)
	assert.Equal(t, "20.00", event.Amount.StringFixed(2))

	err := f.delete.Execute(ctx, DeleteEntryInput{UserID: f.owner, EntryID: accepted.ID})
	assert.Equal(t, domainerror.ErrCodeEntryNotFound, ledgerCode(t, err))
	assert.Empty(t, f.entries.All(f.property))
}

func TestDeleteEntry_CascadesToSplits(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	parent := f.newEntry(t, entity.EntryKindIncome, "100", nil)
	f.acceptEntry(t, parent.ID)
	accepted := f.newEntry(t, entity.EntryKindExpense, "-40", &parent.ID)
	f.acceptEntry(t, accepted.ID)
	pending := f.newEntry(t, entity.EntryKindExpense, "-15", &parent.ID)
	nested := f.newEntry(t, entity.EntryKindExpense, "-5", &accepted.ID)
	f.acceptEntry(t, nested.ID)
	other := f.newEntry(t, entity.EntryKindIncome, "7", nil)
	published := len(f.publisher.types())

	require.NoError(t, f.delete.Execute(ctx, DeleteEntryInput{UserID: f.owner, EntryID: parent.ID}))

	f.publisher.mu.Lock()
	deleted := f.publisher.events[published:]
	f.publisher.mu.Unlock()
	ids := make([]int64, len(deleted))
	for i, e := range deleted {
		assert.Equal(t, entity.EventEntryDeleted, e.Type)
		ids[i] = e.EntryID
	}
	assert.Equal(t, []int64{parent.ID, accepted.ID, nested.ID}, ids)

	remaining := f.entries.All(f.property)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].ID)

	_, err := f.accept.Execute(ctx, AcceptEntryInput{UserID: f.owner, EntryID: pending.ID})
	assert.Equal(t, domainerror.ErrCodeEntryNotFound, ledgerCode(t, err))
}

func TestPublishFailure(t *testing.T) {
	f := newLedgerFixture(t)
	entry := f.newEntry(t, entity.EntryKindIncome, "10", nil)
	f.publisher.err = errors.New("broker unavailable")

	_, err := f.accept.Execute(context.Background(), AcceptEntryInput{UserID: f.owner, EntryID: entry.ID})
	require.Error(t, err)

	// The change is stored; the derived views catch up on reconciliation.
	stored, err := f.entries.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAccepted())
}

type refusingLocker struct{}

func (refusingLocker) Lock(context.Context, uuid.UUID) (func(), error) {
	return nil, domainerror.ErrLockNotObtained
}

func TestAcceptEntry_LockFailure(t *testing.T) {
	f := newLedgerFixture(t)
	entry := f.newEntry(t, entity.EntryKindIncome, "10", nil)
	f.accept.locker = refusingLocker{}

	_, err := f.accept.Execute(context.Background(), AcceptEntryInput{UserID: f.owner, EntryID: entry.ID})
	assert.Equal(t, domainerror.ErrCodeLockNotObtained, ledgerCode(t, err))

	stored, err := f.entries.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAccepted())
}
