package topup

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used for tests and local runs.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]Record
	byRef   map[string]string
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]Record),
		byRef:   make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	rec.Status = StatusPending
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.records[rec.ID] = rec
	r.byRef[rec.Reference] = rec.ID
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) GetByReference(_ context.Context, reference string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byRef[reference]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r.records[id], nil
}

func (r *MemoryRepository) MarkCompleted(_ context.Context, id, receipt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusPending {
		return ErrTerminal
	}
	rec.Status = StatusCompleted
	rec.Receipt = receipt
	rec.UpdatedAt = time.Now().UTC()
	r.records[id] = rec
	return nil
}

func (r *MemoryRepository) MarkFailed(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusPending {
		return ErrTerminal
	}
	rec.Status = StatusFailed
	rec.FailureReason = reason
	rec.UpdatedAt = time.Now().UTC()
	r.records[id] = rec
	return nil
}
