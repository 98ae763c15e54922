package charges

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cbsvault/paymentvault/internal/ledger"
)

// StatusChecker reports whether a disbursement has been confirmed successful.
// The check is re-read from storage at settlement time so a charge is never
// deducted for a disbursement whose status changed underneath us.
type StatusChecker interface {
	IsSuccessful(ctx context.Context, disbursementID string) (bool, error)
}

// StatusCheckerFunc adapts a function to StatusChecker.
type StatusCheckerFunc func(ctx context.Context, disbursementID string) (bool, error)

func (f StatusCheckerFunc) IsSuccessful(ctx context.Context, disbursementID string) (bool, error) {
	return f(ctx, disbursementID)
}

// Settlement resolves pending charge transactions once their related
// disbursement reaches a terminal state.
type Settlement struct {
	repo    Repository
	ledger  ledger.Ledger
	checker StatusChecker
	logger  *slog.Logger
}

// NewSettlement builds a settlement service.
func NewSettlement(repo Repository, l ledger.Ledger, checker StatusChecker, logger *slog.Logger) *Settlement {
	return &Settlement{repo: repo, ledger: l, checker: checker, logger: logger}
}

// Quote returns the fee that would apply to a billable amount without
// recording anything. Zero means no active config or no fee.
func (s *Settlement) Quote(ctx context.Context, partnerID, chargeType string, billableAmount int64) int64 {
	cfg, err := s.repo.ActiveConfig(ctx, partnerID, chargeType)
	if err != nil {
		return 0
	}
	return Calculate(cfg, billableAmount)
}

// Reserve computes the fee for a billable amount, records a pending charge
// transaction and, for inline charges, reserves the fee on the wallet with a
// pending ledger entry keyed to the disbursement.
func (s *Settlement) Reserve(ctx context.Context, partnerID, walletID, disbursementID, chargeType string, billableAmount int64) (Transaction, error) {
	cfg, err := s.repo.ActiveConfig(ctx, partnerID, chargeType)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return Transaction{}, nil
		}
		return Transaction{}, err
	}
	amount := Calculate(cfg, billableAmount)
	if amount <= 0 {
		return Transaction{}, nil
	}

	tx := Transaction{
		ID:                   uuid.NewString(),
		PartnerID:            partnerID,
		WalletID:             walletID,
		ChargeConfigID:       cfg.ID,
		RelatedTransactionID: disbursementID,
		Amount:               amount,
		Mode:                 cfg.Mode,
		Status:               StatusPending,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return Transaction{}, err
	}

	if cfg.Mode == ModeInline {
		_, err := s.ledger.CreatePending(ctx, ledger.PendingInput{
			PartnerID:   partnerID,
			Amount:      -amount,
			Type:        ledger.TypeCharge,
			Reference:   InlineReference(disbursementID),
			Description: fmt.Sprintf("%s charge", chargeType),
		})
		if err != nil {
			return Transaction{}, err
		}
	}
	return tx, nil
}

// Settle deducts all pending charges for a disbursement that has just been
// confirmed successful. Inline charges were already reserved on the ledger;
// their recorded row is completed with the balances observed when the
// reservation settled. Deferred charges are deducted now with their own
// ledger reference. Settlement is best effort per charge: a failure on one
// charge is logged and does not block the rest.
func (s *Settlement) Settle(ctx context.Context, disbursementID string) error {
	ok, err := s.checker.IsSuccessful(ctx, disbursementID)
	if err != nil {
		return err
	}
	if !ok {
		return s.FailForDisbursement(ctx, disbursementID, "disbursement not successful")
	}

	pending, err := s.repo.PendingForDisbursement(ctx, disbursementID)
	if err != nil {
		return err
	}
	for _, tx := range pending {
		if err := s.settleOne(ctx, tx); err != nil {
			s.logger.Error("charge settlement failed",
				slog.String("charge_id", tx.ID),
				slog.String("disbursement_id", disbursementID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Settlement) settleOne(ctx context.Context, tx Transaction) error {
	switch tx.Mode {
	case ModeInline:
		res, err := s.ledger.CompletePending(ctx, InlineReference(tx.RelatedTransactionID), map[string]string{"charge_id": tx.ID})
		if err != nil && !errors.Is(err, ledger.ErrAlreadyProcessed) {
			return err
		}
		return s.repo.MarkCompleted(ctx, tx.ID, res.PreviousBalance, res.NewBalance)
	case ModeDeferred:
		res, err := s.ledger.Apply(ctx, ledger.ApplyInput{
			PartnerID:   tx.PartnerID,
			Amount:      -tx.Amount,
			Type:        ledger.TypeCharge,
			Reference:   DeferredReference(tx.ID),
			Description: "deferred charge settlement",
		})
		if err != nil && !errors.Is(err, ledger.ErrAlreadyProcessed) {
			return err
		}
		return s.repo.MarkCompleted(ctx, tx.ID, res.PreviousBalance, res.NewBalance)
	default:
		return fmt.Errorf("unknown charge mode %q", tx.Mode)
	}
}

// FailForDisbursement releases all pending charges for a disbursement that
// ended in failure. Inline ledger reservations are released without touching
// the balance.
func (s *Settlement) FailForDisbursement(ctx context.Context, disbursementID, reason string) error {
	pending, err := s.repo.PendingForDisbursement(ctx, disbursementID)
	if err != nil {
		return err
	}
	for _, tx := range pending {
		if tx.Mode == ModeInline {
			if err := s.ledger.FailPending(ctx, InlineReference(disbursementID), reason); err != nil &&
				!errors.Is(err, ledger.ErrReferenceNotFound) && !errors.Is(err, ledger.ErrAlreadyProcessed) {
				s.logger.Error("charge reservation release failed",
					slog.String("charge_id", tx.ID),
					slog.String("error", err.Error()))
			}
		}
		if err := s.repo.MarkFailed(ctx, tx.ID, reason); err != nil && !errors.Is(err, ErrTerminal) {
			s.logger.Error("charge fail transition failed",
				slog.String("charge_id", tx.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// InlineReference is the ledger reference used to reserve an inline
// disbursement charge.
func InlineReference(disbursementID string) string {
	return "DISBURSEMENT_CHARGE_" + disbursementID
}

// DeferredReference is the ledger reference used when a deferred charge is
// deducted at settlement time.
func DeferredReference(chargeTxID string) string {
	return "CHARGE_" + chargeTxID
}
