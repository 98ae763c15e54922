package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu           sync.Mutex
	wallets      map[string]*Wallet // keyed by partner id
	transactions []*Transaction
	byReference  map[string]*Transaction
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests. Semantics mirror PostgresLedger, including reference idempotency and
// the failed audit row on refused debits.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets:     make(map[string]*Wallet),
		byReference: make(map[string]*Transaction),
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, partnerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.ensureWalletLocked(partnerID), nil
}

func (l *inMemoryLedger) ensureWalletLocked(partnerID string) *Wallet {
	if w, ok := l.wallets[partnerID]; ok {
		return w
	}
	now := time.Now().UTC()
	w := &Wallet{
		ID:        uuid.NewString(),
		PartnerID: partnerID,
		Currency:  "KES",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.wallets[partnerID] = w
	return w
}

func (l *inMemoryLedger) WalletByPartner(_ context.Context, partnerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[partnerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *w, nil
}

func (l *inMemoryLedger) Apply(_ context.Context, input ApplyInput) (ApplyResult, error) {
	if input.Amount == 0 {
		return ApplyResult{}, ErrZeroAmount
	}
	if input.Reference == "" {
		return ApplyResult{}, fmt.Errorf("reference is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	wallet, ok := l.wallets[input.PartnerID]
	if !ok {
		return ApplyResult{}, ErrWalletNotFound
	}

	if prior, ok := l.byReference[input.Reference]; ok && prior.Status == StatusCompleted {
		return priorResult(*prior), ErrAlreadyProcessed
	}

	if input.Amount < 0 && wallet.CurrentBalance+input.Amount < 0 && !input.AllowNegative {
		l.recordLocked(&Transaction{
			ID:            uuid.NewString(),
			WalletID:      wallet.ID,
			Type:          input.Type,
			Amount:        input.Amount,
			Reference:     input.Reference,
			Status:        StatusFailed,
			BalanceBefore: wallet.CurrentBalance,
			BalanceAfter:  wallet.CurrentBalance,
			Description:   input.Description,
			Metadata:      copyMeta(input.Metadata),
			FailureReason: "insufficient funds",
		})
		return ApplyResult{}, ErrInsufficientFunds
	}

	before := wallet.CurrentBalance
	wallet.CurrentBalance += input.Amount
	wallet.UpdatedAt = time.Now().UTC()

	entry := &Transaction{
		ID:            uuid.NewString(),
		WalletID:      wallet.ID,
		Type:          input.Type,
		Amount:        input.Amount,
		Reference:     input.Reference,
		Status:        StatusCompleted,
		BalanceBefore: before,
		BalanceAfter:  wallet.CurrentBalance,
		Description:   input.Description,
		Metadata:      copyMeta(input.Metadata),
	}
	l.recordLocked(entry)

	return priorResult(*entry), nil
}

func (l *inMemoryLedger) CreatePending(_ context.Context, input PendingInput) (Transaction, error) {
	if input.Amount == 0 {
		return Transaction{}, ErrZeroAmount
	}
	if input.Reference == "" {
		return Transaction{}, fmt.Errorf("reference is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	wallet, ok := l.wallets[input.PartnerID]
	if !ok {
		return Transaction{}, ErrWalletNotFound
	}
	if existing, ok := l.byReference[input.Reference]; ok {
		return *existing, ErrAlreadyProcessed
	}

	entry := &Transaction{
		ID:            uuid.NewString(),
		WalletID:      wallet.ID,
		Type:          input.Type,
		Amount:        input.Amount,
		Reference:     input.Reference,
		Status:        StatusPending,
		BalanceBefore: wallet.CurrentBalance,
		BalanceAfter:  wallet.CurrentBalance,
		Description:   input.Description,
		Metadata:      copyMeta(input.Metadata),
	}
	l.recordLocked(entry)
	return *entry, nil
}

func (l *inMemoryLedger) CompletePending(_ context.Context, reference string, metadata map[string]string) (ApplyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending, ok := l.byReference[reference]
	if !ok {
		return ApplyResult{}, ErrReferenceNotFound
	}
	if pending.Status != StatusPending {
		return priorResult(*pending), ErrAlreadyProcessed
	}

	var wallet *Wallet
	for _, w := range l.wallets {
		if w.ID == pending.WalletID {
			wallet = w
			break
		}
	}
	if wallet == nil {
		return ApplyResult{}, ErrWalletNotFound
	}
	if pending.Amount < 0 && wallet.CurrentBalance+pending.Amount < 0 {
		return ApplyResult{}, ErrInsufficientFunds
	}

	before := wallet.CurrentBalance
	wallet.CurrentBalance += pending.Amount
	wallet.UpdatedAt = time.Now().UTC()

	pending.Status = StatusCompleted
	pending.BalanceBefore = before
	pending.BalanceAfter = wallet.CurrentBalance
	pending.UpdatedAt = wallet.UpdatedAt
	if pending.Metadata == nil && len(metadata) > 0 {
		pending.Metadata = make(map[string]string, len(metadata))
	}
	for k, v := range metadata {
		pending.Metadata[k] = v
	}

	return priorResult(*pending), nil
}

func (l *inMemoryLedger) FailPending(_ context.Context, reference, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.byReference[reference]
	if !ok {
		return ErrReferenceNotFound
	}
	if t.Status != StatusPending {
		return nil
	}
	t.Status = StatusFailed
	t.FailureReason = reason
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *inMemoryLedger) TransactionByReference(_ context.Context, reference string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.byReference[reference]
	if !ok {
		return Transaction{}, ErrReferenceNotFound
	}
	return *t, nil
}

func (l *inMemoryLedger) Transactions(_ context.Context, walletID string, limit int) ([]Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []Transaction
	for i := len(l.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if l.transactions[i].WalletID == walletID {
			out = append(out, *l.transactions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (l *inMemoryLedger) recordLocked(t *Transaction) {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	l.transactions = append(l.transactions, t)
	// Failed rows do not reserve the reference; a retry may still succeed.
	if t.Status != StatusFailed {
		l.byReference[t.Reference] = t
	} else if _, exists := l.byReference[t.Reference]; !exists {
		l.byReference[t.Reference] = t
	}
}

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
