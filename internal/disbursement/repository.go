package disbursement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists disbursement requests.
type Repository interface {
	Create(ctx context.Context, req Request) error
	GetByID(ctx context.Context, id string) (Request, error)
	GetByConversationID(ctx context.Context, conversationID string) (Request, error)
	// SetConversationID records the provider correlation id returned at
	// initiation.
	SetConversationID(ctx context.Context, id, conversationID string) error
	// ApplyResult transitions a pending request to the result's status.
	// Re-applying the same terminal status is a no-op; a conflicting terminal
	// transition returns ErrTerminalState.
	ApplyResult(ctx context.Context, id string, res Result) error
}

// PostgresRepository stores disbursement requests in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const requestColumns = `id, partner_id, wallet_id, amount, msisdn, recipient_name, origin,
    conversation_id, status, result_code, result_desc, transaction_receipt,
    transaction_amount, transaction_date, working_funds, utility_funds,
    callback_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, req Request) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, `INSERT INTO disbursement_requests
        (id, partner_id, wallet_id, amount, msisdn, recipient_name, origin, conversation_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.PartnerID, req.WalletID, req.Amount, req.MSISDN, req.RecipientName,
		req.Origin, req.ConversationID, StatusPending, now, now)
	return err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM disbursement_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (r *PostgresRepository) GetByConversationID(ctx context.Context, conversationID string) (Request, error) {
	// Rows awaiting SetConversationID carry an empty conversation_id; an
	// empty lookup would match one of them at random.
	if conversationID == "" {
		return Request{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM disbursement_requests WHERE conversation_id = $1`, conversationID)
	return scanRequest(row)
}

func (r *PostgresRepository) SetConversationID(ctx context.Context, id, conversationID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE disbursement_requests SET conversation_id = $1, updated_at = $2 WHERE id = $3`,
		conversationID, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyResult locks the request row, then transitions it. The row lock closes
// the window between the status check and the update when callbacks race.
func (r *PostgresRepository) ApplyResult(ctx context.Context, id string, res Result) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM disbursement_requests WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if current.Terminal() {
		if current == res.Status {
			return nil
		}
		return ErrTerminalState
	}
	if !res.Status.Terminal() {
		return nil
	}

	_, err = tx.Exec(ctx, `UPDATE disbursement_requests SET
        status = $1, result_code = $2, result_desc = $3, transaction_receipt = $4,
        transaction_amount = $5, transaction_date = $6, working_funds = $7,
        utility_funds = $8, callback_at = $9, updated_at = $9
        WHERE id = $10`,
		res.Status, res.ResultCode, res.ResultDesc, res.TransactionReceipt,
		res.TransactionAmount, res.TransactionDate, res.WorkingFunds,
		res.UtilityFunds, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var id, pid, wid uuid.UUID
	err := row.Scan(&id, &pid, &wid, &req.Amount, &req.MSISDN, &req.RecipientName, &req.Origin,
		&req.ConversationID, &req.Status, &req.ResultCode, &req.ResultDesc, &req.TransactionReceipt,
		&req.TransactionAmount, &req.TransactionDate, &req.WorkingFunds, &req.UtilityFunds,
		&req.CallbackAt, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, err
	}
	req.ID = id.String()
	req.PartnerID = pid.String()
	req.WalletID = wid.String()
	return req, nil
}
