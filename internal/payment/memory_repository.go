package payment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-process ledger store.
type MemoryRepository struct {
	mu      sync.RWMutex
	batches []Batch
	index   map[uuid.UUID]int
	items   []Item
	events  []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{index: make(map[uuid.UUID]int)}
}

func (r *MemoryRepository) InsertBatch(_ context.Context, b Batch, items []Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.index[b.ID] = len(r.batches)
	r.batches = append(r.batches, b.Clone())
	r.items = append(r.items, items...)
	return nil
}

func (r *MemoryRepository) GetBatch(_ context.Context, id uuid.UUID) (*Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	b := r.batches[i].Clone()
	return &b, nil
}

func (r *MemoryRepository) ListBatches(_ context.Context) ([]Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Batch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) ListBatchesByPsychologist(_ context.Context, psychologistID uuid.UUID) ([]Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Batch{}
	for _, b := range r.batches {
		if b.PsychologistID == psychologistID {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListItemsByBatch(_ context.Context, batchID uuid.UUID) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Item{}
	for _, it := range r.items {
		if it.BatchID == batchID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *MemoryRepository) UpdateBatchStatus(_ context.Context, id uuid.UUID, from, to Status, at time.Time, reason *string) (*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	if r.batches[i].Status != from {
		return nil, ErrBatchStatusChanged
	}

	r.batches[i].apply(to, at, reason)
	b := r.batches[i].Clone()
	return &b, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns the recorded event log, oldest first.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
