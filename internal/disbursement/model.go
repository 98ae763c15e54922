package disbursement

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no disbursement request matched.
	ErrNotFound = errors.New("disbursement request not found")
	// ErrTerminalState indicates the request already holds a terminal status
	// that conflicts with the requested transition.
	ErrTerminalState = errors.New("disbursement request already terminal")
	// ErrInsufficientBalance indicates the wallet cannot cover the payout
	// amount plus its charge.
	ErrInsufficientBalance = errors.New("insufficient wallet balance for disbursement")
)

// Status is the lifecycle state of a disbursement request. Success and failed
// are terminal; a provider intermediate code leaves the request pending.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// OriginUSSD marks requests whose origin system expects a completion webhook.
const OriginUSSD = "ussd"

// Request is one outbound payout to an end customer. The payout principal is
// drawn from the provider-side float; the partner wallet is billed only the
// charge once the payout is confirmed.
type Request struct {
	ID             string
	PartnerID      string
	WalletID       string
	Amount         int64 // minor units
	MSISDN         string
	RecipientName  string
	Origin         string
	ConversationID string
	Status         Status

	// Result fields populated by the provider callback.
	ResultCode         string
	ResultDesc         string
	TransactionReceipt string
	TransactionAmount  int64
	TransactionDate    string
	WorkingFunds       float64
	UtilityFunds       float64

	CallbackAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Result carries the provider outcome to apply onto a pending request.
type Result struct {
	Status             Status
	ResultCode         string
	ResultDesc         string
	TransactionReceipt string
	TransactionAmount  int64
	TransactionDate    string
	WorkingFunds       float64
	UtilityFunds       float64
}
