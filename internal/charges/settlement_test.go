package charges

import (
	"context"
	"testing"

	"github.com/cbsvault/paymentvault/internal/ledger"
	"github.com/cbsvault/paymentvault/internal/logging"
)

var alwaysSuccessful = StatusCheckerFunc(func(context.Context, string) (bool, error) { return true, nil })

func newTestSettlement(t *testing.T, mode Mode) (*Settlement, *MemoryRepository, ledger.Ledger) {
	t.Helper()
	repo := NewMemoryRepository()
	repo.AddConfig(Config{
		ID:          "cfg-1",
		PartnerID:   "partner-1",
		ChargeType:  "disbursement",
		FixedAmount: 5_00,
		Mode:        mode,
		IsActive:    true,
	})
	l := ledger.NewInMemory()
	ledger.SeedWallet(l, "partner-1", 100_00)
	return NewSettlement(repo, l, alwaysSuccessful, logging.Discard()), repo, l
}

func TestCalculateGreaterOfFixedAndPercentage(t *testing.T) {
	cfg := Config{FixedAmount: 5_00, Percentage: 2}
	if got := Calculate(cfg, 100_00); got != 5_00 {
		t.Fatalf("expected fixed 500, got %d", got)
	}
	if got := Calculate(cfg, 1000_00); got != 20_00 {
		t.Fatalf("expected percentage 2000, got %d", got)
	}
}

func TestCalculateClampsToBounds(t *testing.T) {
	cfg := Config{Percentage: 1, MinimumCents: 3_00, MaximumCents: 10_00}
	if got := Calculate(cfg, 100_00); got != 3_00 {
		t.Fatalf("expected minimum 300, got %d", got)
	}
	if got := Calculate(cfg, 5000_00); got != 10_00 {
		t.Fatalf("expected maximum 1000, got %d", got)
	}
}

func TestReserveInlineCreatesPendingLedgerEntry(t *testing.T) {
	s, repo, l := newTestSettlement(t, ModeInline)
	ctx := context.Background()

	tx, err := s.Reserve(ctx, "partner-1", "wallet-1", "disb-1", "disbursement", 100_00)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if tx.Amount != 5_00 {
		t.Fatalf("expected amount 500, got %d", tx.Amount)
	}
	if _, ok := repo.Get(tx.ID); !ok {
		t.Fatal("charge transaction not recorded")
	}

	entry, err := l.TransactionByReference(ctx, InlineReference("disb-1"))
	if err != nil {
		t.Fatalf("ledger reference: %v", err)
	}
	if entry.Status != ledger.StatusPending {
		t.Fatalf("expected pending reservation, got %s", entry.Status)
	}

	w, err := l.WalletByPartner(ctx, "partner-1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.CurrentBalance != 100_00 {
		t.Fatalf("reservation must not move the balance, got %d", w.CurrentBalance)
	}
}

func TestSettleInlineCompletesReservation(t *testing.T) {
	s, repo, l := newTestSettlement(t, ModeInline)
	ctx := context.Background()

	tx, err := s.Reserve(ctx, "partner-1", "wallet-1", "disb-1", "disbursement", 100_00)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := s.Settle(ctx, "disb-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	got, _ := repo.Get(tx.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.WalletBalanceBefore != 100_00 || got.WalletBalanceAfter != 95_00 {
		t.Fatalf("unexpected stamped balances %d -> %d", got.WalletBalanceBefore, got.WalletBalanceAfter)
	}

	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 95_00 {
		t.Fatalf("expected balance 9500, got %d", w.CurrentBalance)
	}
}

func TestSettleDeferredDeductsWithOwnReference(t *testing.T) {
	s, repo, l := newTestSettlement(t, ModeDeferred)
	ctx := context.Background()

	tx, err := s.Reserve(ctx, "partner-1", "wallet-1", "disb-1", "disbursement", 100_00)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := l.TransactionByReference(ctx, InlineReference("disb-1")); err == nil {
		t.Fatal("deferred charge must not reserve on the ledger")
	}

	if err := s.Settle(ctx, "disb-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	entry, err := l.TransactionByReference(ctx, DeferredReference(tx.ID))
	if err != nil {
		t.Fatalf("deferred ledger entry: %v", err)
	}
	if entry.Amount != -5_00 || entry.Status != ledger.StatusCompleted {
		t.Fatalf("unexpected deferred entry amount=%d status=%s", entry.Amount, entry.Status)
	}
	got, _ := repo.Get(tx.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	s, _, l := newTestSettlement(t, ModeInline)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, "partner-1", "wallet-1", "disb-1", "disbursement", 100_00); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := s.Settle(ctx, "disb-1"); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if err := s.Settle(ctx, "disb-1"); err != nil {
		t.Fatalf("second settle: %v", err)
	}
	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 95_00 {
		t.Fatalf("double settlement must not deduct twice, got %d", w.CurrentBalance)
	}
}

func TestSettleRefusesWhenDisbursementNotSuccessful(t *testing.T) {
	repo := NewMemoryRepository()
	repo.AddConfig(Config{ID: "cfg-1", PartnerID: "partner-1", ChargeType: "disbursement", FixedAmount: 5_00, Mode: ModeInline, IsActive: true})
	l := ledger.NewInMemory()
	ledger.SeedWallet(l, "partner-1", 100_00)
	checker := StatusCheckerFunc(func(context.Context, string) (bool, error) { return false, nil })
	s := NewSettlement(repo, l, checker, logging.Discard())
	ctx := context.Background()

	tx, err := s.Reserve(ctx, "partner-1", "wallet-1", "disb-1", "disbursement", 100_00)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := s.Settle(ctx, "disb-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	got, _ := repo.Get(tx.ID)
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 100_00 {
		t.Fatalf("failed disbursement must not deduct charge, got %d", w.CurrentBalance)
	}
}

func TestFailForDisbursementReleasesReservation(t *testing.T) {
	s, repo, l := newTestSettlement(t, ModeInline)
	ctx := context.Background()

	tx, err := s.Reserve(ctx, "partner-1", "wallet-1", "disb-1", "disbursement", 100_00)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := s.FailForDisbursement(ctx, "disb-1", "provider declined"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, _ := repo.Get(tx.ID)
	if got.Status != StatusFailed || got.FailureReason != "provider declined" {
		t.Fatalf("unexpected charge state %s/%s", got.Status, got.FailureReason)
	}
	entry, err := l.TransactionByReference(ctx, InlineReference("disb-1"))
	if err != nil {
		t.Fatalf("ledger reference: %v", err)
	}
	if entry.Status != ledger.StatusFailed {
		t.Fatalf("expected failed reservation, got %s", entry.Status)
	}
}
