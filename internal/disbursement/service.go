package disbursement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cbsvault/paymentvault/internal/charges"
	"github.com/cbsvault/paymentvault/internal/ledger"
)

// ErrInvalidInput rejects malformed initiation requests.
var ErrInvalidInput = errors.New("invalid disbursement input")

// Service initiates payouts. The wallet must cover the payout amount plus the
// charge before the provider is called; the payout principal itself is drawn
// from the provider float, so only the charge is reserved on the ledger.
type Service struct {
	repo       Repository
	ledger     ledger.Ledger
	settlement *charges.Settlement
	client     Client
	resultURL  string
	timeoutURL string
	logger     *slog.Logger
}

// NewService constructs a disbursement service.
func NewService(repo Repository, l ledger.Ledger, settlement *charges.Settlement, client Client, resultURL, timeoutURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		ledger:     l,
		settlement: settlement,
		client:     client,
		resultURL:  resultURL,
		timeoutURL: timeoutURL,
		logger:     logger,
	}
}

// InitiateInput describes one payout request from a partner.
type InitiateInput struct {
	PartnerID     string
	Amount        int64
	MSISDN        string
	RecipientName string
	Origin        string
	Remarks       string
}

// Initiate submits a payout to the provider and records the pending request.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (Request, error) {
	if input.PartnerID == "" || input.MSISDN == "" || input.Amount <= 0 {
		return Request{}, ErrInvalidInput
	}

	w, err := s.ledger.EnsureWallet(ctx, input.PartnerID)
	if err != nil {
		return Request{}, err
	}

	charge := s.settlement.Quote(ctx, input.PartnerID, "disbursement", input.Amount)
	if w.CurrentBalance < input.Amount+charge {
		return Request{}, ErrInsufficientBalance
	}

	req := Request{
		ID:            uuid.NewString(),
		PartnerID:     input.PartnerID,
		WalletID:      w.ID,
		Amount:        input.Amount,
		MSISDN:        input.MSISDN,
		RecipientName: input.RecipientName,
		Origin:        input.Origin,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return Request{}, err
	}

	resp, err := s.client.SendB2C(ctx, B2CPayment{
		RequestID:  req.ID,
		MSISDN:     input.MSISDN,
		Amount:     input.Amount,
		Remarks:    input.Remarks,
		ResultURL:  s.resultURL,
		TimeoutURL: s.timeoutURL,
	})
	if err != nil {
		if ferr := s.repo.ApplyResult(ctx, req.ID, Result{
			Status:     StatusFailed,
			ResultCode: "SUBMIT_FAILED",
			ResultDesc: err.Error(),
		}); ferr != nil {
			s.logger.Error("failing rejected disbursement",
				slog.String("disbursement_id", req.ID),
				slog.String("error", ferr.Error()))
		}
		return Request{}, fmt.Errorf("submit payout: %w", err)
	}

	if err := s.repo.SetConversationID(ctx, req.ID, resp.ConversationID); err != nil {
		return Request{}, err
	}
	req.ConversationID = resp.ConversationID

	if _, err := s.settlement.Reserve(ctx, input.PartnerID, w.ID, req.ID, "disbursement", input.Amount); err != nil {
		s.logger.Error("charge reservation failed",
			slog.String("disbursement_id", req.ID),
			slog.String("error", err.Error()))
	}

	s.logger.Info("disbursement submitted",
		slog.String("disbursement_id", req.ID),
		slog.String("conversation_id", resp.ConversationID),
		slog.Int64("amount", input.Amount))
	return req, nil
}

// Get fetches a disbursement request by id.
func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.repo.GetByID(ctx, id)
}
