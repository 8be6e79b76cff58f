package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// AcceptEntryInput represents the input for entry acceptance.
type AcceptEntryInput struct {
	UserID  uuid.UUID
	EntryID int64
}

// AcceptEntryOutput represents the output of entry acceptance.
type AcceptEntryOutput struct {
	Entry *EntryOutput
}

// AcceptEntryUseCase moves a pending entry to accepted. From then on the entry
// contributes to the balance and to the rollups.
type AcceptEntryUseCase struct {
	entries   adapter.LedgerEntryRepository
	owners    adapter.OwnershipChecker
	locker    adapter.PropertyLocker
	publisher adapter.EventPublisher
}

// NewAcceptEntryUseCase creates a new AcceptEntryUseCase instance.
func NewAcceptEntryUseCase(
	entries adapter.LedgerEntryRepository,
	owners adapter.OwnershipChecker,
	locker adapter.PropertyLocker,
	publisher adapter.EventPublisher,
) *AcceptEntryUseCase {
	return &AcceptEntryUseCase{
		entries:   entries,
		owners:    owners,
		locker:    locker,
		publisher: publisher,
	}
}

// Execute performs the entry acceptance.
func (uc *AcceptEntryUseCase) Execute(ctx context.Context, input AcceptEntryInput) (*AcceptEntryOutput, error) {
	entry, unlock, err := lockOwnedEntry(ctx, uc.entries, uc.owners, uc.locker, input.UserID, input.EntryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// A split only counts once its parent does.
	if entry.ParentID != nil {
		parent, err := uc.entries.FindByID(ctx, *entry.ParentID)
		if err != nil && !errors.Is(err, domainerror.ErrEntryNotFound) {
			return nil, fmt.Errorf("failed to find parent entry: %w", err)
		}
		if parent == nil || !parent.IsAccepted() {
			return nil, domainerror.NewLedgerError(
				domainerror.ErrCodeParentNotAccepted,
				"parent entry must be accepted first",
				domainerror.ErrParentNotAccepted,
			)
		}
	}

	if !entry.Accept() {
		return nil, domainerror.NewLedgerError(
			domainerror.ErrCodeEntryNotPending,
			"only pending entries can be accepted",
			domainerror.ErrEntryNotPending,
		)
	}

	if err := uc.entries.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to accept ledger entry: %w", err)
	}

	if err := publish(ctx, uc.publisher, entity.NewLedgerEvent(entity.EventEntryAccepted, entry)); err != nil {
		return nil, err
	}

	return &AcceptEntryOutput{Entry: toEntryOutput(entry)}, nil
}
