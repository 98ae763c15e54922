package collections

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cbsvault/paymentvault/internal/callbacklog"
	"github.com/cbsvault/paymentvault/internal/ledger"
	"github.com/cbsvault/paymentvault/internal/partner"
)

// Service reconciles provider-push collection notifications into wallet
// credits.
type Service struct {
	repo      Repository
	partners  partner.Repository
	ledger    ledger.Ledger
	callbacks callbacklog.Log
	creds     Credentials
	separator string
	logger    *slog.Logger
}

// NewService constructs a collections service. separator splits the bill
// reference into account and partner id.
func NewService(repo Repository, partners partner.Repository, l ledger.Ledger, callbacks callbacklog.Log, creds Credentials, separator string, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		partners:  partners,
		ledger:    l,
		callbacks: callbacks,
		creds:     creds,
		separator: separator,
		logger:    logger,
	}
}

// RecordMalformed appends a notification body that failed to parse, keeping
// the raw bytes for forensic replay. A non-nil error means the entry was not
// persisted and the provider must not be acknowledged.
func (s *Service) RecordMalformed(ctx context.Context, raw []byte) error {
	return s.callbacks.Append(ctx, callbacklog.Entry{
		CallbackType: "collection",
		ResultDesc:   "unparseable payload",
		Raw:          raw,
	})
}

// Handle processes one notification. The returned Ack is what the provider
// sees; a non-nil error means persistence failed and no acknowledgement may
// be sent, so the provider retries.
//
// The wallet credit is keyed on the provider transaction id, so a retried
// notification converges: the record insert and the ledger posting each
// tolerate their half already existing and neither credits twice.
func (s *Service) Handle(ctx context.Context, n Notification, raw []byte) (Ack, error) {
	if err := s.callbacks.Append(ctx, callbacklog.Entry{
		CallbackType:  "collection",
		TransactionID: n.TransID,
		Raw:           raw,
	}); err != nil {
		return Ack{}, err
	}

	if err := n.Validate(s.creds); err != nil {
		s.logger.Warn("collection notification rejected",
			slog.String("trans_id", n.TransID),
			slog.String("error", err.Error()))
		return Rejected("authentication failed"), nil
	}

	amount, err := n.AmountCents()
	if err != nil {
		return Rejected("invalid amount"), nil
	}

	account, partnerID, ok := n.AccountParts(s.separator)
	if !ok {
		return Rejected("malformed bill reference"), nil
	}
	if s.creds.AccountNumber != "" && account != s.creds.AccountNumber {
		s.logger.Warn("collection for unexpected account",
			slog.String("trans_id", n.TransID),
			slog.String("account", account))
		return Rejected("unknown account"), nil
	}
	p, err := s.partners.FindActiveByID(ctx, partnerID)
	if errors.Is(err, partner.ErrNotFound) {
		s.logger.Warn("collection for unknown partner",
			slog.String("trans_id", n.TransID),
			slog.String("bill_ref", n.BillRefNumber))
		return Rejected("unknown account"), nil
	}
	if err != nil {
		return Ack{}, err
	}

	w, err := s.ledger.EnsureWallet(ctx, p.ID)
	if err != nil {
		return Ack{}, err
	}

	err = s.repo.Create(ctx, Record{
		ID:        uuid.NewString(),
		TransID:   n.TransID,
		TransType: n.TransType,
		TransTime: n.TransTime,
		Amount:    amount,
		MSISDN:    n.MSISDN,
		PayerName: n.FirstName,
		ShortCode: n.BusinessShortCode,
		BillRef:   n.BillRefNumber,
		Account:   account,
		PartnerID: p.ID,
		WalletID:  w.ID,
	})
	duplicate := errors.Is(err, ErrDuplicate)
	if err != nil && !duplicate {
		return Ack{}, err
	}

	_, err = s.ledger.Apply(ctx, ledger.ApplyInput{
		PartnerID:   p.ID,
		Amount:      amount,
		Type:        ledger.TypeTopUp,
		Reference:   n.TransID,
		Description: "paybill collection from " + n.MSISDN,
	})
	if errors.Is(err, ledger.ErrAlreadyProcessed) {
		return Accepted("already processed"), nil
	}
	if err != nil {
		return Ack{}, err
	}

	if duplicate {
		return Accepted("already processed"), nil
	}
	s.logger.Info("collection credited",
		slog.String("trans_id", n.TransID),
		slog.String("partner_id", p.ID),
		slog.Int64("amount", amount))
	return Accepted("accepted"), nil
}
