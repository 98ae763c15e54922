package disbursement

import (
	"context"
	"errors"
	"testing"

	"github.com/cbsvault/paymentvault/internal/charges"
	"github.com/cbsvault/paymentvault/internal/ledger"
	"github.com/cbsvault/paymentvault/internal/logging"
)

type refusingClient struct{}

func (refusingClient) SendB2C(context.Context, B2CPayment) (B2CResponse, error) {
	return B2CResponse{}, ErrExternalCallFailed
}

func newTestService(t *testing.T, client Client) (*Service, *MemoryRepository, ledger.Ledger) {
	t.Helper()
	l := ledger.NewInMemory()
	ledger.SeedWallet(l, "partner-1", 1_000_00)
	repo := NewMemoryRepository()
	chargeRepo := charges.NewMemoryRepository()
	chargeRepo.AddConfig(charges.Config{
		ID:          "cfg-1",
		PartnerID:   "partner-1",
		ChargeType:  "disbursement",
		FixedAmount: 20_00,
		Mode:        charges.ModeInline,
		IsActive:    true,
	})
	settlement := charges.NewSettlement(chargeRepo, l, StatusChecker(repo), logging.Discard())
	svc := NewService(repo, l, settlement, client, "https://cb/result", "https://cb/timeout", logging.Discard())
	return svc, repo, l
}

func TestInitiateCreatesPendingRequestWithReservation(t *testing.T) {
	svc, repo, l := newTestService(t, StaticClient{})
	ctx := context.Background()

	req, err := svc.Initiate(ctx, InitiateInput{
		PartnerID: "partner-1",
		Amount:    500_00,
		MSISDN:    "254711000000",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if req.ConversationID == "" {
		t.Fatal("conversation id must be recorded")
	}
	stored, err := repo.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusPending || stored.ConversationID != req.ConversationID {
		t.Fatalf("unexpected stored request %+v", stored)
	}

	entry, err := l.TransactionByReference(ctx, charges.InlineReference(req.ID))
	if err != nil {
		t.Fatalf("charge reservation: %v", err)
	}
	if entry.Status != ledger.StatusPending || entry.Amount != -20_00 {
		t.Fatalf("unexpected reservation status=%s amount=%d", entry.Status, entry.Amount)
	}

	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 1_000_00 {
		t.Fatalf("initiation must not move the balance, got %d", w.CurrentBalance)
	}
}

func TestInitiateRejectsInsufficientBalance(t *testing.T) {
	svc, _, _ := newTestService(t, StaticClient{})

	// 990 + 20 charge exceeds the 1,000 balance.
	_, err := svc.Initiate(context.Background(), InitiateInput{
		PartnerID: "partner-1",
		Amount:    990_00,
		MSISDN:    "254711000000",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestInitiateRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t, StaticClient{})
	_, err := svc.Initiate(context.Background(), InitiateInput{PartnerID: "partner-1", Amount: 0, MSISDN: "254711000000"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInitiateFailsRequestWhenProviderRefuses(t *testing.T) {
	svc, repo, l := newTestService(t, refusingClient{})
	ctx := context.Background()

	_, err := svc.Initiate(ctx, InitiateInput{
		PartnerID: "partner-1",
		Amount:    500_00,
		MSISDN:    "254711000000",
	})
	if !errors.Is(err, ErrExternalCallFailed) {
		t.Fatalf("expected ErrExternalCallFailed, got %v", err)
	}

	var failed int
	for _, id := range repo.ids() {
		req, _ := repo.GetByID(ctx, id)
		if req.Status == StatusFailed && req.ResultCode == "SUBMIT_FAILED" {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("refused submission must be marked failed, got %d", failed)
	}
	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 1_000_00 {
		t.Fatalf("refused submission must not move the balance, got %d", w.CurrentBalance)
	}
}
