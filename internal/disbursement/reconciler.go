package disbursement

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/cbsvault/paymentvault/internal/callbacklog"
	"github.com/cbsvault/paymentvault/internal/charges"
	"github.com/cbsvault/paymentvault/internal/webhook"
)

const (
	resultCodeSuccess      = 0
	resultCodeIntermediate = 1
)

// Reconciler applies provider result and timeout callbacks onto disbursement
// requests, settles charges, and notifies origin systems. Callbacks for the
// same request may race; correctness rests on the repository's row-level
// terminal guard and the ledger's reference idempotency, never on a value
// computed earlier in the same call.
type Reconciler struct {
	repo       Repository
	settlement *charges.Settlement
	callbacks  callbacklog.Log
	notifier   webhook.Notifier
	logger     *slog.Logger
}

// NewReconciler constructs a reconciler.
func NewReconciler(repo Repository, settlement *charges.Settlement, callbacks callbacklog.Log, notifier webhook.Notifier, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:       repo,
		settlement: settlement,
		callbacks:  callbacks,
		notifier:   notifier,
		logger:     logger,
	}
}

// StatusChecker returns the charge-settlement guard: a fresh read of the
// request's persisted status at the instant of deduction.
func StatusChecker(repo Repository) charges.StatusChecker {
	return charges.StatusCheckerFunc(func(ctx context.Context, disbursementID string) (bool, error) {
		req, err := repo.GetByID(ctx, disbursementID)
		if err != nil {
			return false, err
		}
		return req.Status == StatusSuccess, nil
	})
}

// RecordMalformed appends a callback body that failed to parse. The raw
// bytes are all that can be kept; a non-nil error means the entry was not
// persisted and the provider must not be acknowledged.
func (r *Reconciler) RecordMalformed(ctx context.Context, callbackType string, raw []byte) error {
	return r.callbacks.Append(ctx, callbacklog.Entry{
		CallbackType: callbackType,
		ResultDesc:   "unparseable payload",
		Raw:          raw,
	})
}

// HandleResult processes a provider result callback. A non-nil error means
// the outcome could not be durably persisted and the provider must NOT be
// acknowledged, so its retry can land later. Every recoverable condition
// (unknown request, duplicate, intermediate code) returns nil so the handler
// acknowledges and the provider stops retrying.
func (r *Reconciler) HandleResult(ctx context.Context, cb ResultCallback) error {
	req, resolved, err := r.resolve(ctx, cb.ConversationID, cb.Occasion)
	if err != nil {
		return err
	}

	entry := callbacklog.Entry{
		CallbackType:   "disbursement_result",
		ConversationID: cb.ConversationID,
		TransactionID:  cb.TransactionID,
		ResultCode:     strconv.Itoa(cb.ResultCode),
		ResultDesc:     cb.ResultDesc,
		Raw:            cb.Raw,
	}
	if resolved {
		entry.PartnerID = req.PartnerID
		entry.DisbursementID = req.ID
	}
	if err := r.callbacks.Append(ctx, entry); err != nil {
		return err
	}
	if !resolved {
		r.logger.Warn("unresolvable disbursement callback",
			slog.String("conversation_id", cb.ConversationID),
			slog.String("occasion", cb.Occasion))
		return nil
	}

	switch {
	case cb.ResultCode == resultCodeIntermediate:
		r.logger.Info("disbursement still in flight",
			slog.String("disbursement_id", req.ID),
			slog.String("result_desc", cb.ResultDesc))
		return nil
	case cb.ResultCode == resultCodeSuccess:
		return r.applySuccess(ctx, req, cb)
	default:
		return r.applyFailure(ctx, req, strconv.Itoa(cb.ResultCode), cb.ResultDesc)
	}
}

// HandleTimeout processes a provider queue-timeout callback as a terminal
// failure.
func (r *Reconciler) HandleTimeout(ctx context.Context, cb TimeoutCallback) error {
	req, resolved, err := r.resolve(ctx, cb.ConversationID, cb.Occasion)
	if err != nil {
		return err
	}

	entry := callbacklog.Entry{
		CallbackType:   "disbursement_timeout",
		ConversationID: cb.ConversationID,
		ResultCode:     "TIMEOUT",
		ResultDesc:     "request expired in provider queue",
		Raw:            cb.Raw,
	}
	if resolved {
		entry.PartnerID = req.PartnerID
		entry.DisbursementID = req.ID
	}
	if err := r.callbacks.Append(ctx, entry); err != nil {
		return err
	}
	if !resolved {
		r.logger.Warn("unresolvable disbursement timeout",
			slog.String("conversation_id", cb.ConversationID))
		return nil
	}
	return r.applyFailure(ctx, req, "TIMEOUT", "request expired in provider queue")
}

// resolve correlates a callback to a request. Rows carry an empty
// conversation id between Create and SetConversationID, so an empty id from
// the wire must never be looked up: it would match whichever row is in that
// window.
func (r *Reconciler) resolve(ctx context.Context, conversationID, occasion string) (Request, bool, error) {
	if conversationID != "" {
		req, err := r.repo.GetByConversationID(ctx, conversationID)
		if err == nil {
			return req, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Request{}, false, err
		}
	}
	if occasion != "" {
		req, err := r.repo.GetByID(ctx, occasion)
		if err == nil {
			return req, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Request{}, false, err
		}
	}
	return Request{}, false, nil
}

func (r *Reconciler) applySuccess(ctx context.Context, req Request, cb ResultCallback) error {
	err := r.repo.ApplyResult(ctx, req.ID, Result{
		Status:             StatusSuccess,
		ResultCode:         strconv.Itoa(cb.ResultCode),
		ResultDesc:         cb.ResultDesc,
		TransactionReceipt: cb.TransactionReceipt,
		TransactionAmount:  cb.TransactionAmount,
		TransactionDate:    cb.TransactionDate,
		WorkingFunds:       cb.WorkingFunds,
		UtilityFunds:       cb.UtilityFunds,
	})
	if errors.Is(err, ErrTerminalState) {
		r.logger.Warn("success callback for already failed disbursement",
			slog.String("disbursement_id", req.ID))
		return nil
	}
	if err != nil {
		return err
	}

	// Settlement re-reads the persisted status before any deduction and the
	// ledger short-circuits an already completed reference, so a duplicate
	// callback reaching this point deducts nothing.
	if err := r.settlement.Settle(ctx, req.ID); err != nil {
		return err
	}
	r.notifyOrigin(ctx, req, StatusSuccess, cb.ResultDesc)
	return nil
}

func (r *Reconciler) applyFailure(ctx context.Context, req Request, code, desc string) error {
	err := r.repo.ApplyResult(ctx, req.ID, Result{
		Status:     StatusFailed,
		ResultCode: code,
		ResultDesc: desc,
	})
	if errors.Is(err, ErrTerminalState) {
		r.logger.Warn("failure callback for already successful disbursement",
			slog.String("disbursement_id", req.ID),
			slog.String("result_code", code))
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.settlement.FailForDisbursement(ctx, req.ID, desc); err != nil {
		return err
	}
	r.notifyOrigin(ctx, req, StatusFailed, desc)
	return nil
}

// notifyOrigin fires the downstream origin webhook when the request came from
// a system that expects one. Delivery failures are logged, never escalated.
func (r *Reconciler) notifyOrigin(ctx context.Context, req Request, status Status, desc string) {
	if req.Origin != OriginUSSD {
		return
	}
	err := r.notifier.Notify(ctx, webhook.Event{
		Type:          "disbursement." + string(status),
		TransactionID: req.ID,
		PartnerID:     req.PartnerID,
		Amount:        req.Amount,
		Description:   desc,
	})
	if err != nil {
		r.logger.Error("origin webhook delivery failed",
			slog.String("disbursement_id", req.ID),
			slog.String("error", err.Error()))
	}
}
