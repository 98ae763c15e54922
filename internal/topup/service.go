package topup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/cbsvault/paymentvault/internal/callbacklog"
	"github.com/cbsvault/paymentvault/internal/ledger"
)

// ErrInvalidInput rejects malformed initiation requests.
var ErrInvalidInput = errors.New("invalid top-up input")

// ErrStillPending is returned by Verify when the provider has no terminal
// answer yet. The record stays pending.
var ErrStillPending = errors.New("top-up still pending at provider")

// Service drives customer-initiated top-ups. The pending ledger credit is
// created synchronously at initiation, before any callback can arrive, so
// the callback path and the verify path both converge on completing that one
// reference: whichever lands first wins, the other is a no-op.
type Service struct {
	repo      Repository
	ledger    ledger.Ledger
	client    Client
	callbacks callbacklog.Log
	callback  string // URL the provider posts results to
	logger    *slog.Logger
}

// NewService constructs a top-up service.
func NewService(repo Repository, l ledger.Ledger, client Client, callbacks callbacklog.Log, callbackURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		ledger:    l,
		client:    client,
		callbacks: callbacks,
		callback:  callbackURL,
		logger:    logger,
	}
}

// InitiateInput describes one push-payment request.
type InitiateInput struct {
	PartnerID string
	MSISDN    string
	Amount    int64
}

// Initiate pushes the payment prompt and records the pending top-up.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (Record, error) {
	if input.PartnerID == "" || input.MSISDN == "" || input.Amount <= 0 {
		return Record{}, ErrInvalidInput
	}

	w, err := s.ledger.EnsureWallet(ctx, input.PartnerID)
	if err != nil {
		return Record{}, err
	}

	resp, err := s.client.Push(ctx, PushInput{
		MSISDN:      input.MSISDN,
		Amount:      input.Amount,
		AccountRef:  input.PartnerID,
		Description: "wallet top-up",
		CallbackURL: s.callback,
	})
	if err != nil {
		return Record{}, fmt.Errorf("push payment: %w", err)
	}

	if _, err := s.ledger.CreatePending(ctx, ledger.PendingInput{
		PartnerID:   input.PartnerID,
		Amount:      input.Amount,
		Type:        ledger.TypeTopUp,
		Reference:   resp.Reference,
		Description: "push-payment top-up from " + input.MSISDN,
	}); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:                uuid.NewString(),
		PartnerID:         input.PartnerID,
		WalletID:          w.ID,
		Reference:         resp.Reference,
		MerchantRequestID: resp.MerchantRequestID,
		MSISDN:            input.MSISDN,
		Amount:            input.Amount,
		Status:            StatusPending,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}

	s.logger.Info("top-up initiated",
		slog.String("topup_id", rec.ID),
		slog.String("reference", rec.Reference),
		slog.Int64("amount", input.Amount))
	return rec, nil
}

// RecordMalformed appends a callback body that failed to parse, keeping the
// raw bytes for forensic replay. A non-nil error means the entry was not
// persisted and the provider must not be acknowledged.
func (s *Service) RecordMalformed(ctx context.Context, raw []byte) error {
	return s.callbacks.Append(ctx, callbacklog.Entry{
		CallbackType: "stk",
		ResultDesc:   "unparseable payload",
		Raw:          raw,
	})
}

// HandleCallback processes a provider push-payment callback. A non-nil error
// means the outcome was not durably persisted and the provider must not be
// acknowledged.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) error {
	if err := s.callbacks.Append(ctx, callbacklog.Entry{
		CallbackType:  "stk",
		TransactionID: cb.Reference,
		ResultCode:    strconv.Itoa(cb.ResultCode),
		ResultDesc:    cb.ResultDesc,
		Raw:           cb.Raw,
	}); err != nil {
		return err
	}

	rec, err := s.repo.GetByReference(ctx, cb.Reference)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("callback for unknown top-up", slog.String("reference", cb.Reference))
		return nil
	}
	if err != nil {
		return err
	}

	if cb.Success() {
		return s.complete(ctx, rec, cb.Receipt)
	}
	return s.fail(ctx, rec, strconv.Itoa(cb.ResultCode)+": "+cb.ResultDesc)
}

// Verify queries the provider for the top-up's current status and funnels the
// answer through the same completion path as the callback. A provider error
// or a still-pending answer changes nothing.
func (s *Service) Verify(ctx context.Context, id string) (Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Status != StatusPending {
		return rec, nil
	}

	res, err := s.client.QueryStatus(ctx, rec.Reference)
	if err != nil {
		return rec, fmt.Errorf("verify top-up: %w", err)
	}

	switch res.Outcome {
	case OutcomeSuccess:
		if err := s.complete(ctx, rec, res.Receipt); err != nil {
			return rec, err
		}
	case OutcomeFailed:
		if err := s.fail(ctx, rec, res.ResultCode+": "+res.ResultDesc); err != nil {
			return rec, err
		}
	default:
		return rec, ErrStillPending
	}
	return s.repo.GetByID(ctx, id)
}

// Get fetches a top-up record by id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) complete(ctx context.Context, rec Record, receipt string) error {
	_, err := s.ledger.CompletePending(ctx, rec.Reference, map[string]string{"receipt": receipt})
	if err != nil && !errors.Is(err, ledger.ErrAlreadyProcessed) {
		return err
	}
	if err := s.repo.MarkCompleted(ctx, rec.ID, receipt); err != nil && !errors.Is(err, ErrTerminal) {
		return err
	}
	s.logger.Info("top-up completed",
		slog.String("topup_id", rec.ID),
		slog.String("reference", rec.Reference))
	return nil
}

func (s *Service) fail(ctx context.Context, rec Record, reason string) error {
	if err := s.ledger.FailPending(ctx, rec.Reference, reason); err != nil &&
		!errors.Is(err, ledger.ErrReferenceNotFound) && !errors.Is(err, ledger.ErrAlreadyProcessed) {
		return err
	}
	if err := s.repo.MarkFailed(ctx, rec.ID, reason); err != nil && !errors.Is(err, ErrTerminal) {
		return err
	}
	s.logger.Info("top-up failed",
		slog.String("topup_id", rec.ID),
		slog.String("reason", reason))
	return nil
}
