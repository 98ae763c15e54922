package charges

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists charge configurations and charge transactions.
type Repository interface {
	ActiveConfig(ctx context.Context, partnerID, chargeType string) (Config, error)
	CreateTransaction(ctx context.Context, tx Transaction) error
	PendingForDisbursement(ctx context.Context, disbursementID string) ([]Transaction, error)
	// MarkCompleted performs the single permitted terminal transition,
	// stamping the wallet balances observed at settlement.
	MarkCompleted(ctx context.Context, id string, balanceBefore, balanceAfter int64) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// ErrConfigNotFound indicates no active charge config for the partner/type.
var ErrConfigNotFound = errors.New("charge config not found")

// PostgresRepository stores charge data in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ActiveConfig fetches the active charge configuration for a partner and type.
func (r *PostgresRepository) ActiveConfig(ctx context.Context, partnerID, chargeType string) (Config, error) {
	row := r.db.QueryRow(ctx, `SELECT id, partner_id, charge_type, charge_name, fixed_amount, percentage, minimum_amount, maximum_amount, mode
        FROM charge_configs WHERE partner_id = $1 AND charge_type = $2 AND is_active LIMIT 1`, partnerID, chargeType)
	var cfg Config
	var id, pid uuid.UUID
	if err := row.Scan(&id, &pid, &cfg.ChargeType, &cfg.Name, &cfg.FixedAmount, &cfg.Percentage, &cfg.MinimumCents, &cfg.MaximumCents, &cfg.Mode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, ErrConfigNotFound
		}
		return Config{}, err
	}
	cfg.ID = id.String()
	cfg.PartnerID = pid.String()
	cfg.IsActive = true
	return cfg, nil
}

// CreateTransaction inserts a charge transaction row.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx Transaction) error {
	meta, err := json.Marshal(tx.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO charge_transactions
        (id, partner_id, wallet_id, charge_config_id, related_transaction_id, amount, mode, status, wallet_balance_before, wallet_balance_after, failure_reason, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tx.ID, tx.PartnerID, tx.WalletID, tx.ChargeConfigID, tx.RelatedTransactionID,
		tx.Amount, tx.Mode, tx.Status, tx.WalletBalanceBefore, tx.WalletBalanceAfter,
		tx.FailureReason, meta, time.Now().UTC())
	return err
}

// PendingForDisbursement lists pending charges tied to a disbursement.
func (r *PostgresRepository) PendingForDisbursement(ctx context.Context, disbursementID string) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, partner_id, wallet_id, charge_config_id, related_transaction_id, amount, mode, status, wallet_balance_before, wallet_balance_after, failure_reason, metadata, created_at
        FROM charge_transactions WHERE related_transaction_id = $1 AND status = $2 ORDER BY created_at`, disbursementID, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		var id, pid, wid, cfgID uuid.UUID
		var meta []byte
		if err := rows.Scan(&id, &pid, &wid, &cfgID, &tx.RelatedTransactionID, &tx.Amount, &tx.Mode, &tx.Status,
			&tx.WalletBalanceBefore, &tx.WalletBalanceAfter, &tx.FailureReason, &meta, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.ID = id.String()
		tx.PartnerID = pid.String()
		tx.WalletID = wid.String()
		tx.ChargeConfigID = cfgID.String()
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &tx.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// MarkCompleted transitions a pending charge to completed, exactly once.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, balanceBefore, balanceAfter int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE charge_transactions
        SET status = $1, wallet_balance_before = $2, wallet_balance_after = $3, processed_at = $4
        WHERE id = $5 AND status = $6`, StatusCompleted, balanceBefore, balanceAfter, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTerminal
	}
	return nil
}

// MarkFailed transitions a pending charge to failed, exactly once.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := r.db.Exec(ctx, `UPDATE charge_transactions
        SET status = $1, failure_reason = $2, processed_at = $3
        WHERE id = $4 AND status = $5`, StatusFailed, reason, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTerminal
	}
	return nil
}
