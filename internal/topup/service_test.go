package topup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cbsvault/paymentvault/internal/callbacklog"
	"github.com/cbsvault/paymentvault/internal/ledger"
	"github.com/cbsvault/paymentvault/internal/logging"
)

// scriptedClient returns canned push/query answers.
type scriptedClient struct {
	pushRef  string
	queryRes StatusResult
	queryErr error
}

func (c scriptedClient) Push(context.Context, PushInput) (PushResponse, error) {
	return PushResponse{Reference: c.pushRef, MerchantRequestID: "mr-1"}, nil
}

func (c scriptedClient) QueryStatus(context.Context, string) (StatusResult, error) {
	return c.queryRes, c.queryErr
}

func newTestTopup(t *testing.T, client Client) (*Service, ledger.Ledger) {
	t.Helper()
	l := ledger.NewInMemory()
	ledger.SeedWallet(l, "partner-1", 0)
	svc := NewService(NewMemoryRepository(), l, client, callbacklog.NewMemoryLog(), "https://cb/stk", logging.Discard())
	return svc, l
}

func TestInitiateCreatesPendingLedgerCredit(t *testing.T) {
	svc, l := newTestTopup(t, scriptedClient{pushRef: "TX2"})
	ctx := context.Background()

	rec, err := svc.Initiate(ctx, InitiateInput{PartnerID: "partner-1", MSISDN: "254711000000", Amount: 2_000_00})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if rec.Reference != "TX2" || rec.Status != StatusPending {
		t.Fatalf("unexpected record %+v", rec)
	}

	entry, err := l.TransactionByReference(ctx, "TX2")
	if err != nil {
		t.Fatalf("ledger entry: %v", err)
	}
	if entry.Status != ledger.StatusPending || entry.Amount != 2_000_00 {
		t.Fatalf("unexpected pending credit status=%s amount=%d", entry.Status, entry.Amount)
	}
	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 0 {
		t.Fatalf("initiation must not credit, got %d", w.CurrentBalance)
	}
}

func TestCallbackCompletesTopup(t *testing.T) {
	svc, l := newTestTopup(t, scriptedClient{pushRef: "TX2"})
	ctx := context.Background()

	rec, err := svc.Initiate(ctx, InitiateInput{PartnerID: "partner-1", MSISDN: "254711000000", Amount: 2_000_00})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	err = svc.HandleCallback(ctx, Callback{Reference: "TX2", ResultCode: 0, Receipt: "RKT77"})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}

	got, _ := svc.Get(ctx, rec.ID)
	if got.Status != StatusCompleted || got.Receipt != "RKT77" {
		t.Fatalf("unexpected record %+v", got)
	}
	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 2_000_00 {
		t.Fatalf("expected credit of 200000, got %d", w.CurrentBalance)
	}
}

func TestCallbackFailureReleasesPendingCredit(t *testing.T) {
	svc, l := newTestTopup(t, scriptedClient{pushRef: "TX2"})
	ctx := context.Background()

	rec, _ := svc.Initiate(ctx, InitiateInput{PartnerID: "partner-1", MSISDN: "254711000000", Amount: 2_000_00})
	err := svc.HandleCallback(ctx, Callback{Reference: "TX2", ResultCode: 1032, ResultDesc: "Request cancelled by user"})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}

	got, _ := svc.Get(ctx, rec.ID)
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 0 {
		t.Fatalf("cancelled push must not credit, got %d", w.CurrentBalance)
	}
	entry, _ := l.TransactionByReference(ctx, "TX2")
	if entry.Status != ledger.StatusFailed {
		t.Fatalf("pending credit must be released, got %s", entry.Status)
	}
}

func TestCallbackForUnknownReferenceIsAbsorbed(t *testing.T) {
	svc, _ := newTestTopup(t, scriptedClient{pushRef: "TX2"})
	err := svc.HandleCallback(context.Background(), Callback{Reference: "TX-ghost", ResultCode: 0})
	if err != nil {
		t.Fatalf("unknown callback must not error: %v", err)
	}
}

func TestVerifyCompletesViaProviderQuery(t *testing.T) {
	svc, l := newTestTopup(t, scriptedClient{
		pushRef:  "TX2",
		queryRes: StatusResult{Outcome: OutcomeSuccess, Receipt: "RKT88", ResultCode: "0"},
	})
	ctx := context.Background()

	rec, _ := svc.Initiate(ctx, InitiateInput{PartnerID: "partner-1", MSISDN: "254711000000", Amount: 2_000_00})
	got, err := svc.Verify(ctx, rec.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Status != StatusCompleted || got.Receipt != "RKT88" {
		t.Fatalf("unexpected record %+v", got)
	}
	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 2_000_00 {
		t.Fatalf("expected credit, got %d", w.CurrentBalance)
	}
}

func TestVerifyAndCallbackConvergeOnOneCredit(t *testing.T) {
	svc, l := newTestTopup(t, scriptedClient{
		pushRef:  "TX2",
		queryRes: StatusResult{Outcome: OutcomeSuccess, Receipt: "RKT99", ResultCode: "0"},
	})
	ctx := context.Background()
	rec, _ := svc.Initiate(ctx, InitiateInput{PartnerID: "partner-1", MSISDN: "254711000000", Amount: 2_000_00})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Verify(ctx, rec.ID)
	}()
	go func() {
		defer wg.Done()
		_ = svc.HandleCallback(ctx, Callback{Reference: "TX2", ResultCode: 0, Receipt: "RKT99"})
	}()
	wg.Wait()

	w, _ := l.WalletByPartner(ctx, "partner-1")
	if w.CurrentBalance != 2_000_00 {
		t.Fatalf("racing completion paths must credit once, got %d", w.CurrentBalance)
	}
	got, _ := svc.Get(ctx, rec.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestVerifyLeavesPendingOnProviderError(t *testing.T) {
	svc, l := newTestTopup(t, scriptedClient{pushRef: "TX2", queryErr: ErrExternalCallFailed})
	ctx := context.Background()

	rec, _ := svc.Initiate(ctx, InitiateInput{PartnerID: "partner-1", MSISDN: "254711000000", Amount: 2_000_00})
	_, err := svc.Verify(ctx, rec.ID)
	if !errors.Is(err, ErrExternalCallFailed) {
		t.Fatalf("expected ErrExternalCallFailed, got %v", err)
	}
	got, _ := svc.Get(ctx, rec.ID)
	if got.Status != StatusPending {
		t.Fatalf("provider error must leave pending, got %s", got.Status)
	}
	entry, _ := l.TransactionByReference(ctx, "TX2")
	if entry.Status != ledger.StatusPending {
		t.Fatalf("ledger credit must stay pending, got %s", entry.Status)
	}
}

func TestVerifyPendingAnswerChangesNothing(t *testing.T) {
	svc, _ := newTestTopup(t, scriptedClient{pushRef: "TX2", queryRes: StatusResult{Outcome: OutcomePending}})
	ctx := context.Background()

	rec, _ := svc.Initiate(ctx, InitiateInput{PartnerID: "partner-1", MSISDN: "254711000000", Amount: 2_000_00})
	_, err := svc.Verify(ctx, rec.ID)
	if !errors.Is(err, ErrStillPending) {
		t.Fatalf("expected ErrStillPending, got %v", err)
	}
	got, _ := svc.Get(ctx, rec.ID)
	if got.Status != StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}
}
