package partner

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Partner // keyed by lower-cased id
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Partner)}
}

func (r *memoryRepository) Create(_ context.Context, p Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(p.ID)
	if _, exists := r.storage[key]; exists {
		return errors.New("partner exists")
	}
	r.storage[key] = p
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[strings.ToLower(id)]
	if !ok {
		return Partner{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) FindActiveByID(ctx context.Context, id string) (Partner, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return Partner{}, err
	}
	if !p.IsActive {
		return Partner{}, ErrNotFound
	}
	return p, nil
}
