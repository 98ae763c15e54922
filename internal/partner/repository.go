package partner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no partner matched the lookup.
var ErrNotFound = errors.New("partner not found")

// Repository persists partner records.
type Repository interface {
	Create(ctx context.Context, p Partner) error
	FindByID(ctx context.Context, id string) (Partner, error)
	// FindActiveByID resolves an active partner by id, matching
	// case-insensitively: account references arrive from provider
	// notifications with unpredictable casing.
	FindActiveByID(ctx context.Context, id string) (Partner, error)
}

// PostgresRepository stores partners in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a partner record.
func (r *PostgresRepository) Create(ctx context.Context, p Partner) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO partners (id, name, short_name, is_active, api_key_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, p.Name, p.ShortName, p.IsActive, p.APIKeyHash, p.CreatedAt.UTC())
	return err
}

// FindByID fetches a partner by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Partner, error) {
	return r.find(ctx, `SELECT id, name, short_name, is_active, api_key_hash, created_at
        FROM partners WHERE id::text = lower($1)`, id)
}

// FindActiveByID resolves an active partner, case-insensitively.
func (r *PostgresRepository) FindActiveByID(ctx context.Context, id string) (Partner, error) {
	return r.find(ctx, `SELECT id, name, short_name, is_active, api_key_hash, created_at
        FROM partners WHERE id::text = lower($1) AND is_active`, id)
}

func (r *PostgresRepository) find(ctx context.Context, query, id string) (Partner, error) {
	row := r.db.QueryRow(ctx, query, id)
	var p Partner
	var pid uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&pid, &p.Name, &p.ShortName, &p.IsActive, &p.APIKeyHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Partner{}, ErrNotFound
		}
		return Partner{}, err
	}
	p.ID = pid.String()
	p.CreatedAt = createdAt.UTC()
	return p, nil
}
