package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBatchNotFound      = errors.New("payment batch not found")
	ErrBatchStatusChanged = errors.New("payment batch status changed concurrently")
)

// Repository contains all storage interactions needed by the ledger.
// Listings return batches and items in insertion order.
type Repository interface {
	// InsertBatch stores a batch together with all of its items, atomically.
	InsertBatch(ctx context.Context, b Batch, items []Item) error
	GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error)
	ListBatches(ctx context.Context) ([]Batch, error)
	ListBatchesByPsychologist(ctx context.Context, psychologistID uuid.UUID) ([]Batch, error)
	ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]Item, error)

	// UpdateBatchStatus moves the batch to `to` only if it is still in `from`,
	// returning ErrBatchStatusChanged otherwise.
	UpdateBatchStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, reason *string) (*Batch, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
