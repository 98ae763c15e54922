package callbacklog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLog stores callback entries in PostgreSQL.
type PostgresLog struct {
	db *pgxpool.Pool
}

// NewPostgresLog builds a log backed by PostgreSQL.
func NewPostgresLog(db *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{db: db}
}

// Append inserts a callback entry.
func (l *PostgresLog) Append(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := l.db.Exec(ctx, `INSERT INTO callback_logs
        (id, callback_type, conversation_id, transaction_id, result_code, result_desc, partner_id, disbursement_id, raw_payload, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)`,
		entry.ID, entry.CallbackType, entry.ConversationID, entry.TransactionID,
		entry.ResultCode, entry.ResultDesc, entry.PartnerID, entry.DisbursementID,
		entry.Raw, time.Now().UTC())
	return err
}

// ByConversationID returns entries for a correlation id, newest first.
func (l *PostgresLog) ByConversationID(ctx context.Context, conversationID string) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT id, callback_type, conversation_id, transaction_id,
        result_code, result_desc, COALESCE(partner_id::text, ''), COALESCE(disbursement_id::text, ''), raw_payload, created_at
        FROM callback_logs WHERE conversation_id = $1 ORDER BY created_at DESC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CallbackType, &e.ConversationID, &e.TransactionID,
			&e.ResultCode, &e.ResultDesc, &e.PartnerID, &e.DisbursementID, &e.Raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
