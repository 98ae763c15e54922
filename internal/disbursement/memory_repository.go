package disbursement

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used for tests and local runs.
type MemoryRepository struct {
	mu       sync.Mutex
	requests map[string]Request
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{requests: make(map[string]Request)}
}

func (r *MemoryRepository) Create(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	req.Status = StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now
	r.requests[req.ID] = req
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (r *MemoryRepository) GetByConversationID(_ context.Context, conversationID string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conversationID == "" {
		return Request{}, ErrNotFound
	}
	for _, req := range r.requests {
		if req.ConversationID == conversationID {
			return req, nil
		}
	}
	return Request{}, ErrNotFound
}

func (r *MemoryRepository) SetConversationID(_ context.Context, id, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return ErrNotFound
	}
	req.ConversationID = conversationID
	req.UpdatedAt = time.Now().UTC()
	r.requests[id] = req
	return nil
}

func (r *MemoryRepository) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.requests))
	for id := range r.requests {
		out = append(out, id)
	}
	return out
}

func (r *MemoryRepository) ApplyResult(_ context.Context, id string, res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return ErrNotFound
	}
	if req.Status.Terminal() {
		if req.Status == res.Status {
			return nil
		}
		return ErrTerminalState
	}
	if !res.Status.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	req.Status = res.Status
	req.ResultCode = res.ResultCode
	req.ResultDesc = res.ResultDesc
	req.TransactionReceipt = res.TransactionReceipt
	req.TransactionAmount = res.TransactionAmount
	req.TransactionDate = res.TransactionDate
	req.WorkingFunds = res.WorkingFunds
	req.UtilityFunds = res.UtilityFunds
	req.CallbackAt = &now
	req.UpdatedAt = now
	r.requests[id] = req
	return nil
}
