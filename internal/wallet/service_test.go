package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/cbsvault/paymentvault/internal/ledger"
)

func TestManualCreditAndDebit(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l)
	ctx := context.Background()

	res, err := svc.ManualCredit(ctx, AdjustInput{PartnerID: "partner-1", Amount: 5_000_00, Reason: "initial float"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.NewBalance != 5_000_00 {
		t.Fatalf("expected 500000, got %d", res.NewBalance)
	}

	res, err = svc.ManualDebit(ctx, AdjustInput{PartnerID: "partner-1", Amount: 1_000_00, Reason: "correction"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if res.NewBalance != 4_000_00 {
		t.Fatalf("expected 400000, got %d", res.NewBalance)
	}
}

func TestManualDebitRefusesUnderflowWithoutOverride(t *testing.T) {
	l := ledger.NewInMemory()
	ledger.SeedWallet(l, "partner-1", 100_00)
	svc := NewService(l)
	ctx := context.Background()

	_, err := svc.ManualDebit(ctx, AdjustInput{PartnerID: "partner-1", Amount: 200_00, Reason: "too much"})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	res, err := svc.ManualDebit(ctx, AdjustInput{PartnerID: "partner-1", Amount: 200_00, Reason: "clawback", AllowNegative: true})
	if err != nil {
		t.Fatalf("override debit: %v", err)
	}
	if res.NewBalance != -100_00 {
		t.Fatalf("expected -10000, got %d", res.NewBalance)
	}
}

func TestAdjustRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	if _, err := svc.ManualCredit(context.Background(), AdjustInput{PartnerID: "p", Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.ManualDebit(context.Background(), AdjustInput{PartnerID: "p", Amount: -5}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestManualAdjustIsIdempotentByReference(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	in := AdjustInput{PartnerID: "partner-1", Amount: 1_000_00, Reference: "ADJ-1", Reason: "float"}
	if _, err := svc.ManualCredit(ctx, in); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	res, err := svc.ManualCredit(ctx, in)
	if !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if res.NewBalance != 1_000_00 {
		t.Fatalf("duplicate must return prior balance, got %d", res.NewBalance)
	}
}

func TestTransactionsListsHistory(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.ManualCredit(ctx, AdjustInput{PartnerID: "partner-1", Amount: 1_000_00, Reason: "a"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.ManualDebit(ctx, AdjustInput{PartnerID: "partner-1", Amount: 300_00, Reason: "b"}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	txs, err := svc.Transactions(ctx, "partner-1", 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(txs))
	}
}
