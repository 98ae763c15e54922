package topup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists top-up records.
type Repository interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	GetByReference(ctx context.Context, reference string) (Record, error)
	// MarkCompleted transitions pending to completed, exactly once.
	MarkCompleted(ctx context.Context, id, receipt string) error
	// MarkFailed transitions pending to failed, exactly once.
	MarkFailed(ctx context.Context, id, reason string) error
}

// PostgresRepository stores top-up records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const topupColumns = `id, partner_id, wallet_id, reference, merchant_request_id, msisdn, amount, status, receipt, failure_reason, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, rec Record) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, `INSERT INTO topups
        (id, partner_id, wallet_id, reference, merchant_request_id, msisdn, amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.PartnerID, rec.WalletID, rec.Reference, rec.MerchantRequestID,
		rec.MSISDN, rec.Amount, StatusPending, now, now)
	return err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+topupColumns+` FROM topups WHERE id = $1`, id)
	return scanRecord(row)
}

func (r *PostgresRepository) GetByReference(ctx context.Context, reference string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+topupColumns+` FROM topups WHERE reference = $1`, reference)
	return scanRecord(row)
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id, receipt string) error {
	tag, err := r.db.Exec(ctx, `UPDATE topups SET status = $1, receipt = $2, updated_at = $3
        WHERE id = $4 AND status = $5`, StatusCompleted, receipt, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTerminal
	}
	return nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := r.db.Exec(ctx, `UPDATE topups SET status = $1, failure_reason = $2, updated_at = $3
        WHERE id = $4 AND status = $5`, StatusFailed, reason, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTerminal
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var id, pid, wid uuid.UUID
	err := row.Scan(&id, &pid, &wid, &rec.Reference, &rec.MerchantRequestID, &rec.MSISDN,
		&rec.Amount, &rec.Status, &rec.Receipt, &rec.FailureReason, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec.ID = id.String()
	rec.PartnerID = pid.String()
	rec.WalletID = wid.String()
	return rec, nil
}
