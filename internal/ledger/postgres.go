package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists wallets and wallet transactions in PostgreSQL. Every
// balance mutation locks the wallet row, updates the balance and inserts the
// transaction inside one database transaction.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const walletColumns = `id, partner_id, current_balance, currency, low_balance_threshold, is_active, created_at, updated_at`

const txColumns = `id, wallet_id, transaction_type, amount, reference, status, balance_before, balance_after, description, metadata, failure_reason, created_at, updated_at`

// EnsureWallet returns the partner's wallet, creating an empty active KES
// wallet on first use.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, partnerID string) (Wallet, error) {
	now := time.Now().UTC()
	_, err := l.db.Exec(ctx, `INSERT INTO wallets (id, partner_id, current_balance, currency, low_balance_threshold, is_active, created_at, updated_at)
        VALUES ($1, $2, 0, 'KES', 0, true, $3, $3)
        ON CONFLICT (partner_id) DO NOTHING`, uuid.New(), partnerID, now)
	if err != nil {
		return Wallet{}, err
	}
	return l.WalletByPartner(ctx, partnerID)
}

// WalletByPartner fetches the wallet for a partner.
func (l *PostgresLedger) WalletByPartner(ctx context.Context, partnerID string) (Wallet, error) {
	row := l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE partner_id = $1`, partnerID)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrWalletNotFound
	}
	return w, err
}

// Apply posts a signed amount against the partner's wallet as a single atomic
// read-modify-write.
func (l *PostgresLedger) Apply(ctx context.Context, input ApplyInput) (ApplyResult, error) {
	if input.Amount == 0 {
		return ApplyResult{}, ErrZeroAmount
	}
	if input.Reference == "" {
		return ApplyResult{}, fmt.Errorf("reference is required")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ApplyResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	wallet, err := lockWalletByPartner(ctx, tx, input.PartnerID)
	if err != nil {
		return ApplyResult{}, err
	}

	// Idempotency: an existing completed row for this reference wins.
	if prior, ok, err := completedByReference(ctx, tx, input.Reference); err != nil {
		return ApplyResult{}, err
	} else if ok {
		return priorResult(prior), ErrAlreadyProcessed
	}

	if input.Amount < 0 && wallet.CurrentBalance+input.Amount < 0 && !input.AllowNegative {
		// Record the refusal for auditability: balance untouched,
		// before == after == current balance.
		failed := Transaction{
			ID:            uuid.NewString(),
			WalletID:      wallet.ID,
			Type:          input.Type,
			Amount:        input.Amount,
			Reference:     input.Reference,
			Status:        StatusFailed,
			BalanceBefore: wallet.CurrentBalance,
			BalanceAfter:  wallet.CurrentBalance,
			Description:   input.Description,
			Metadata:      input.Metadata,
			FailureReason: "insufficient funds",
		}
		if err := insertTransaction(ctx, tx, failed); err != nil {
			return ApplyResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{}, ErrInsufficientFunds
	}

	var newBalance int64
	if err := tx.QueryRow(ctx, `UPDATE wallets SET current_balance = current_balance + $1, updated_at = $2
        WHERE id = $3 RETURNING current_balance`, input.Amount, time.Now().UTC(), wallet.ID).Scan(&newBalance); err != nil {
		return ApplyResult{}, err
	}

	entry := Transaction{
		ID:            uuid.NewString(),
		WalletID:      wallet.ID,
		Type:          input.Type,
		Amount:        input.Amount,
		Reference:     input.Reference,
		Status:        StatusCompleted,
		BalanceBefore: newBalance - input.Amount,
		BalanceAfter:  newBalance,
		Description:   input.Description,
		Metadata:      input.Metadata,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return ApplyResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ApplyResult{}, err
	}

	return ApplyResult{
		TransactionID:   entry.ID,
		WalletID:        wallet.ID,
		PreviousBalance: entry.BalanceBefore,
		NewBalance:      entry.BalanceAfter,
	}, nil
}

// CreatePending inserts a pending transaction without mutating the balance.
func (l *PostgresLedger) CreatePending(ctx context.Context, input PendingInput) (Transaction, error) {
	if input.Amount == 0 {
		return Transaction{}, ErrZeroAmount
	}
	if input.Reference == "" {
		return Transaction{}, fmt.Errorf("reference is required")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	wallet, err := lockWalletByPartner(ctx, tx, input.PartnerID)
	if err != nil {
		return Transaction{}, err
	}

	if existing, ok, err := anyByReference(ctx, tx, input.Reference); err != nil {
		return Transaction{}, err
	} else if ok {
		return existing, ErrAlreadyProcessed
	}

	entry := Transaction{
		ID:            uuid.NewString(),
		WalletID:      wallet.ID,
		Type:          input.Type,
		Amount:        input.Amount,
		Reference:     input.Reference,
		Status:        StatusPending,
		BalanceBefore: wallet.CurrentBalance,
		BalanceAfter:  wallet.CurrentBalance,
		Description:   input.Description,
		Metadata:      input.Metadata,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return entry, nil
}

// CompletePending applies a pending transaction's amount and marks it
// completed, all under the wallet row lock.
func (l *PostgresLedger) CompletePending(ctx context.Context, reference string, metadata map[string]string) (ApplyResult, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ApplyResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	pending, err := lockTransactionByReference(ctx, tx, reference)
	if err != nil {
		return ApplyResult{}, err
	}
	switch pending.Status {
	case StatusCompleted, StatusFailed:
		return priorResult(pending), ErrAlreadyProcessed
	}

	// Lock the wallet row for the balance mutation.
	var walletBalance int64
	if err := tx.QueryRow(ctx, `SELECT current_balance FROM wallets WHERE id = $1 FOR UPDATE`, pending.WalletID).Scan(&walletBalance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ApplyResult{}, ErrWalletNotFound
		}
		return ApplyResult{}, err
	}

	if pending.Amount < 0 && walletBalance+pending.Amount < 0 {
		return ApplyResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	var newBalance int64
	if err := tx.QueryRow(ctx, `UPDATE wallets SET current_balance = current_balance + $1, updated_at = $2
        WHERE id = $3 RETURNING current_balance`, pending.Amount, now, pending.WalletID).Scan(&newBalance); err != nil {
		return ApplyResult{}, err
	}

	meta, err := mergeMetadata(pending.Metadata, metadata)
	if err != nil {
		return ApplyResult{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallet_transactions
        SET status = $1, balance_before = $2, balance_after = $3, metadata = $4, updated_at = $5
        WHERE id = $6`, StatusCompleted, newBalance-pending.Amount, newBalance, meta, now, pending.ID); err != nil {
		return ApplyResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ApplyResult{}, err
	}

	return ApplyResult{
		TransactionID:   pending.ID,
		WalletID:        pending.WalletID,
		PreviousBalance: newBalance - pending.Amount,
		NewBalance:      newBalance,
	}, nil
}

// FailPending marks a pending transaction failed. Terminal rows are left
// untouched.
func (l *PostgresLedger) FailPending(ctx context.Context, reference, reason string) error {
	tag, err := l.db.Exec(ctx, `UPDATE wallet_transactions
        SET status = $1, failure_reason = $2, updated_at = $3
        WHERE reference = $4 AND status = $5`, StatusFailed, reason, time.Now().UTC(), reference, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either terminal already or unknown; distinguish for the caller.
		if _, err := l.TransactionByReference(ctx, reference); errors.Is(err, ErrReferenceNotFound) {
			return ErrReferenceNotFound
		}
	}
	return nil
}

// TransactionByReference looks up a ledger entry by its idempotency reference.
func (l *PostgresLedger) TransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	row := l.db.QueryRow(ctx, `SELECT `+txColumns+` FROM wallet_transactions WHERE reference = $1
        ORDER BY created_at DESC LIMIT 1`, reference)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrReferenceNotFound
	}
	return t, err
}

// Transactions returns the most recent ledger entries for a wallet.
func (l *PostgresLedger) Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `SELECT `+txColumns+` FROM wallet_transactions
        WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func lockWalletByPartner(ctx context.Context, tx pgx.Tx, partnerID string) (Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE partner_id = $1 FOR UPDATE`, partnerID)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrWalletNotFound
	}
	return w, err
}

func lockTransactionByReference(ctx context.Context, tx pgx.Tx, reference string) (Transaction, error) {
	row := tx.QueryRow(ctx, `SELECT `+txColumns+` FROM wallet_transactions WHERE reference = $1
        ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, reference)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrReferenceNotFound
	}
	return t, err
}

func completedByReference(ctx context.Context, tx pgx.Tx, reference string) (Transaction, bool, error) {
	row := tx.QueryRow(ctx, `SELECT `+txColumns+` FROM wallet_transactions
        WHERE reference = $1 AND status = $2`, reference, StatusCompleted)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, err
	}
	return t, true, nil
}

func anyByReference(ctx context.Context, tx pgx.Tx, reference string) (Transaction, bool, error) {
	row := tx.QueryRow(ctx, `SELECT `+txColumns+` FROM wallet_transactions WHERE reference = $1
        ORDER BY created_at DESC LIMIT 1`, reference)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, err
	}
	return t, true, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	meta, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `INSERT INTO wallet_transactions
        (id, wallet_id, transaction_type, amount, reference, status, balance_before, balance_after, description, metadata, failure_reason, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		t.ID, t.WalletID, t.Type, t.Amount, t.Reference, t.Status,
		t.BalanceBefore, t.BalanceAfter, t.Description, meta, t.FailureReason, now)
	return err
}

func priorResult(t Transaction) ApplyResult {
	return ApplyResult{
		TransactionID:   t.ID,
		WalletID:        t.WalletID,
		PreviousBalance: t.BalanceBefore,
		NewBalance:      t.BalanceAfter,
	}
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte(`{}`), nil
	}
	return json.Marshal(m)
}

func mergeMetadata(base, extra map[string]string) ([]byte, error) {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return marshalMetadata(merged)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWallet(row scanner) (Wallet, error) {
	var w Wallet
	var id, partnerID uuid.UUID
	if err := row.Scan(&id, &partnerID, &w.CurrentBalance, &w.Currency, &w.LowBalanceThreshold, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Wallet{}, err
	}
	w.ID = id.String()
	w.PartnerID = partnerID.String()
	return w, nil
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var id, walletID uuid.UUID
	var meta []byte
	if err := row.Scan(&id, &walletID, &t.Type, &t.Amount, &t.Reference, &t.Status,
		&t.BalanceBefore, &t.BalanceAfter, &t.Description, &meta, &t.FailureReason, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	t.ID = id.String()
	t.WalletID = walletID.String()
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return Transaction{}, err
		}
	}
	return t, nil
}
