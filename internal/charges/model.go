package charges

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no charge transaction matched.
	ErrNotFound = errors.New("charge transaction not found")
	// ErrTerminal indicates the charge transaction already reached a terminal
	// state; exactly one terminal transition is permitted.
	ErrTerminal = errors.New("charge transaction already terminal")
)

// Status is the lifecycle state of a charge transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Transaction is a fee tied to a disbursement or other billable event. It
// references the ledger by reference string only; the ledger carries no
// provider-specific knowledge.
type Transaction struct {
	ID                   string
	PartnerID            string
	WalletID             string
	ChargeConfigID       string
	RelatedTransactionID string // disbursement request id
	Amount               int64  // positive minor units
	Mode                 Mode
	Status               Status
	WalletBalanceBefore  int64
	WalletBalanceAfter   int64
	FailureReason        string
	Metadata             map[string]string
	ProcessedAt          time.Time
	CreatedAt            time.Time
}
