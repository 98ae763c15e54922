package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cbsvault/paymentvault/internal/ledger"
)

// ErrInvalidAmount rejects manual adjustments that would not move the
// balance.
var ErrInvalidAmount = errors.New("amount must be positive")

// Service is the dashboard-facing wallet surface. Every adjustment goes
// through the ledger's single apply contract; there is no bypass path to the
// balance.
type Service struct {
	ledger ledger.Ledger
}

// NewService constructs a wallet service.
func NewService(l ledger.Ledger) *Service {
	return &Service{ledger: l}
}

// Balance returns the partner's wallet, creating it on first use.
func (s *Service) Balance(ctx context.Context, partnerID string) (ledger.Wallet, error) {
	return s.ledger.EnsureWallet(ctx, partnerID)
}

// Transactions returns the partner's most recent ledger entries.
func (s *Service) Transactions(ctx context.Context, partnerID string, limit int) ([]ledger.Transaction, error) {
	w, err := s.ledger.WalletByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.ledger.Transactions(ctx, w.ID, limit)
}

// AdjustInput describes a manual credit or debit from the dashboard.
type AdjustInput struct {
	PartnerID string
	Amount    int64 // positive; the operation decides the sign
	Reason    string
	Reference string // optional; generated when empty
	// AllowNegative permits a manual debit to take the balance below zero.
	// Reserved for designated correction flows.
	AllowNegative bool
}

// ManualCredit adds funds to a partner wallet.
func (s *Service) ManualCredit(ctx context.Context, input AdjustInput) (ledger.ApplyResult, error) {
	if input.Amount <= 0 {
		return ledger.ApplyResult{}, ErrInvalidAmount
	}
	if _, err := s.ledger.EnsureWallet(ctx, input.PartnerID); err != nil {
		return ledger.ApplyResult{}, err
	}
	return s.ledger.Apply(ctx, ledger.ApplyInput{
		PartnerID:   input.PartnerID,
		Amount:      input.Amount,
		Type:        ledger.TypeManualCredit,
		Reference:   orGenerated(input.Reference, "MANUAL_CREDIT_"),
		Description: input.Reason,
	})
}

// ManualDebit removes funds from a partner wallet.
func (s *Service) ManualDebit(ctx context.Context, input AdjustInput) (ledger.ApplyResult, error) {
	if input.Amount <= 0 {
		return ledger.ApplyResult{}, ErrInvalidAmount
	}
	if _, err := s.ledger.EnsureWallet(ctx, input.PartnerID); err != nil {
		return ledger.ApplyResult{}, err
	}
	return s.ledger.Apply(ctx, ledger.ApplyInput{
		PartnerID:     input.PartnerID,
		Amount:        -input.Amount,
		Type:          ledger.TypeManualDebit,
		Reference:     orGenerated(input.Reference, "MANUAL_DEBIT_"),
		Description:   input.Reason,
		AllowNegative: input.AllowNegative,
	})
}

func orGenerated(ref, prefix string) string {
	if ref != "" {
		return ref
	}
	return prefix + uuid.NewString()
}
