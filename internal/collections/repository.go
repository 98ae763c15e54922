package collections

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists collection records. TransID carries a unique
// constraint; Create surfaces ErrDuplicate on conflict so the caller can
// acknowledge without re-crediting.
type Repository interface {
	Create(ctx context.Context, rec Record) error
	GetByTransID(ctx context.Context, transID string) (Record, error)
}

// PostgresRepository stores collection records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec Record) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO collection_records
        (id, trans_id, trans_type, trans_time, amount, msisdn, payer_name, short_code, bill_ref, account, partner_id, wallet_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (trans_id) DO NOTHING`,
		rec.ID, rec.TransID, rec.TransType, rec.TransTime, rec.Amount, rec.MSISDN,
		rec.PayerName, rec.ShortCode, rec.BillRef, rec.Account, rec.PartnerID,
		rec.WalletID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *PostgresRepository) GetByTransID(ctx context.Context, transID string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT id, trans_id, trans_type, trans_time, amount, msisdn, payer_name, short_code, bill_ref, account, partner_id, wallet_id, created_at
        FROM collection_records WHERE trans_id = $1`, transID)

	var rec Record
	var id, pid, wid uuid.UUID
	err := row.Scan(&id, &rec.TransID, &rec.TransType, &rec.TransTime, &rec.Amount, &rec.MSISDN,
		&rec.PayerName, &rec.ShortCode, &rec.BillRef, &rec.Account, &pid, &wid, &rec.CreatedAt)
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
