package charges

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used for tests and local runs.
type MemoryRepository struct {
	mu      sync.Mutex
	configs []Config
	txs     map[string]Transaction
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{txs: make(map[string]Transaction)}
}

// AddConfig registers a charge configuration.
func (r *MemoryRepository) AddConfig(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

func (r *MemoryRepository) ActiveConfig(_ context.Context, partnerID, chargeType string) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range r.configs {
		if cfg.PartnerID == partnerID && cfg.ChargeType == chargeType && cfg.IsActive {
			return cfg, nil
		}
	}
	return Config{}, ErrConfigNotFound
}

func (r *MemoryRepository) CreateTransaction(_ context.Context, tx Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	r.txs[tx.ID] = tx
	return nil
}

func (r *MemoryRepository) PendingForDisbursement(_ context.Context, disbursementID string) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for _, tx := range r.txs {
		if tx.RelatedTransactionID == disbursementID && tx.Status == StatusPending {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *MemoryRepository) MarkCompleted(_ context.Context, id string, balanceBefore, balanceAfter int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return ErrNotFound
	}
	if tx.Status != StatusPending {
		return ErrTerminal
	}
	tx.Status = StatusCompleted
	tx.WalletBalanceBefore = balanceBefore
	tx.WalletBalanceAfter = balanceAfter
	tx.ProcessedAt = time.Now().UTC()
	r.txs[id] = tx
	return nil
}

func (r *MemoryRepository) MarkFailed(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return ErrNotFound
	}
	if tx.Status != StatusPending {
		return ErrTerminal
	}
	tx.Status = StatusFailed
	tx.FailureReason = reason
	tx.ProcessedAt = time.Now().UTC()
	r.txs[id] = tx
	return nil
}

// Get returns a transaction by id.
func (r *MemoryRepository) Get(id string) (Transaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	return tx, ok
}
