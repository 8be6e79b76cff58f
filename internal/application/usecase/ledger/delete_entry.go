package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/domain/entity"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// DeleteEntryInput represents the input for entry deletion.
type DeleteEntryInput struct {
	UserID  uuid.UUID
	EntryID int64
}

// DeleteEntryUseCase soft-deletes an entry together with its splits. Only the
// deletion of an accepted entry needs maintenance.
type DeleteEntryUseCase struct {
	entries   adapter.LedgerEntryRepository
	owners    adapter.OwnershipChecker
	locker    adapter.PropertyLocker
	publisher adapter.EventPublisher
}

// NewDeleteEntryUseCase creates a new DeleteEntryUseCase instance.
func NewDeleteEntryUseCase(
	entries adapter.LedgerEntryRepository,
	owners adapter.OwnershipChecker,
	locker adapter.PropertyLocker,
	publisher adapter.EventPublisher,
) *DeleteEntryUseCase {
	return &DeleteEntryUseCase{
		entries:   entries,
		owners:    owners,
		locker:    locker,
		publisher: publisher,
	}
}

// Execute performs the entry deletion. Splits of the entry are deleted with it
// under the same write lock, each with its own event, so no split outlives the
// parent it was carved from.
func (uc *DeleteEntryUseCase) Execute(ctx context.Context, input DeleteEntryInput) error {
	entry, unlock, err := lockOwnedEntry(ctx, uc.entries, uc.owners, uc.locker, input.UserID, input.EntryID)
	if err != nil {
		return err
	}
	defer unlock()

	doomed, err := uc.withSplits(ctx, entry)
	if err != nil {
		return err
	}

	for _, e := range doomed {
		if err := uc.entries.Delete(ctx, e.ID); err != nil {
			if errors.Is(err, domainerror.ErrEntryNotFound) {
				if e.ID == entry.ID {
					return entryNotFound()
				}
				continue
			}
			return fmt.Errorf("failed to delete ledger entry %d: %w", e.ID, err)
		}

		if !e.IsAccepted() {
			continue
		}
		if err := publish(ctx, uc.publisher, entity.NewLedgerEvent(entity.EventEntryDeleted, e)); err != nil {
			return err
		}
	}

	if len(doomed) > 1 {
		slog.Info("Deleted ledger entry with its splits",
			"entry_id", entry.ID,
			"property_id", entry.PropertyID,
			"splits", len(doomed)-1,
		)
	}
	return nil
}

// withSplits returns entry followed by every live descendant, breadth first.
func (uc *DeleteEntryUseCase) withSplits(ctx context.Context, entry *entity.LedgerEntry) ([]*entity.LedgerEntry, error) {
	out := []*entity.LedgerEntry{entry}
	seen := map[int64]bool{entry.ID: true}
	for i := 0; i < len(out); i++ {
		children, err := uc.entries.ListChildren(ctx, out[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list splits of entry %d: %w", out[i].ID, err)
		}
		for _, child := range children {
			if !seen[child.ID] {
				seen[child.ID] = true
				out = append(out, child)
			}
		}
	}
	return out, nil
}
