package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a debit would take the wallet balance
	// below zero and the caller did not request a negative-balance override.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyProcessed indicates a completed transaction already exists for
	// the provided reference; the prior result is returned alongside it and no
	// balance mutation happens.
	ErrAlreadyProcessed = errors.New("reference already processed")

	// ErrWalletNotFound indicates no wallet exists for the partner.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrReferenceNotFound indicates no transaction exists for the reference.
	ErrReferenceNotFound = errors.New("transaction reference not found")

	// ErrZeroAmount rejects postings that would not move the balance.
	ErrZeroAmount = errors.New("amount must be non-zero")
)

// TransactionType classifies a ledger posting.
type TransactionType string

const (
	TypeTopUp         TransactionType = "top_up"
	TypeDisbursement  TransactionType = "disbursement"
	TypeCharge        TransactionType = "charge"
	TypeManualCredit  TransactionType = "manual_credit"
	TypeManualDebit   TransactionType = "manual_debit"
	TypeFloatPurchase TransactionType = "b2c_float_purchase"
	TypeSMSCharge     TransactionType = "sms_charge"
)

// Status is the lifecycle state of a transaction. Completed and failed are
// terminal; rows are immutable once terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Wallet is a partner's prepaid balance account. CurrentBalance is in minor
// units and always equals the signed sum of completed transactions.
type Wallet struct {
	ID                  string
	PartnerID           string
	CurrentBalance      int64
	Currency            string
	LowBalanceThreshold int64
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Transaction is one ledger entry. Amount is signed minor units.
type Transaction struct {
	ID            string
	WalletID      string
	Type          TransactionType
	Amount        int64
	Reference     string
	Status        Status
	BalanceBefore int64
	BalanceAfter  int64
	Description   string
	Metadata      map[string]string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ApplyInput describes a balance mutation request. Reference is the natural
// idempotency key and must be supplied by the caller.
type ApplyInput struct {
	PartnerID   string
	Amount      int64
	Type        TransactionType
	Reference   string
	Description string
	Metadata    map[string]string
	// AllowNegative permits the balance to go below zero. Reserved for
	// designated correction flows (admin manual debit).
	AllowNegative bool
}

// PendingInput reserves a reference with a pending transaction without
// touching the balance; CompletePending later applies it.
type PendingInput struct {
	PartnerID   string
	Amount      int64
	Type        TransactionType
	Reference   string
	Description string
	Metadata    map[string]string
}

// ApplyResult captures the outcome of a posting with before/after snapshots.
type ApplyResult struct {
	TransactionID   string
	WalletID        string
	PreviousBalance int64
	NewBalance      int64
}

// Ledger is the only path permitted to mutate a wallet balance. The balance
// read, balance write and transaction insert happen as one atomic unit.
type Ledger interface {
	// EnsureWallet returns the partner's wallet, creating it on first use.
	EnsureWallet(ctx context.Context, partnerID string) (Wallet, error)

	// WalletByPartner fetches the wallet for a partner.
	WalletByPartner(ctx context.Context, partnerID string) (Wallet, error)

	// Apply posts a signed amount against the partner's wallet. A completed
	// transaction with the same reference short-circuits to the prior result
	// with ErrAlreadyProcessed. Debits that would underflow record a failed
	// audit row and return ErrInsufficientFunds.
	Apply(ctx context.Context, input ApplyInput) (ApplyResult, error)

	// CreatePending inserts a pending transaction for the reference without
	// mutating the balance.
	CreatePending(ctx context.Context, input PendingInput) (Transaction, error)

	// CompletePending atomically applies a pending transaction's amount and
	// marks it completed. An already-completed reference returns the prior
	// result with ErrAlreadyProcessed.
	CompletePending(ctx context.Context, reference string, metadata map[string]string) (ApplyResult, error)

	// FailPending marks a pending transaction failed with a reason. No
	// balance mutation. Calling it on a row that already failed is a no-op.
	FailPending(ctx context.Context, reference, reason string) error

	// TransactionByReference looks up the ledger entry for a reference.
	TransactionByReference(ctx context.Context, reference string) (Transaction, error)

	// Transactions returns the most recent entries for a wallet.
	Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error)
}
