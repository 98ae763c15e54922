package topup

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no top-up record matched.
	ErrNotFound = errors.New("top-up not found")
	// ErrTerminal indicates the record already reached a terminal state.
	ErrTerminal = errors.New("top-up already terminal")
)

// Status is the lifecycle state of a push-payment top-up. A top-up is never
// auto-failed by elapsed time: funds may still arrive late, so exhausting
// verification leaves it pending for the operator.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one customer-initiated top-up. Reference is the provider-assigned
// transaction id and doubles as the ledger reference for the pending credit
// created at initiation.
type Record struct {
	ID                string
	PartnerID         string
	WalletID          string
	Reference         string
	MerchantRequestID string
	MSISDN            string
	Amount            int64 // minor units
	Status            Status
	Receipt           string
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
