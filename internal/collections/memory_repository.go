package collections

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used for tests and local runs.
type MemoryRepository struct {
	mu      sync.Mutex
	byTrans map[string]Record
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byTrans: make(map[string]Record)}
}

func (r *MemoryRepository) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTrans[rec.TransID]; ok {
		return ErrDuplicate
	}
	rec.CreatedAt = time.Now().UTC()
	r.byTrans[rec.TransID] = rec
	return nil
}

func (r *MemoryRepository) GetByTransID(_ context.Context, transID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byTrans[transID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}
