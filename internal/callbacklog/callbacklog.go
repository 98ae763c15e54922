// Package callbacklog keeps an append-only record of every raw provider
// callback, including ones that match no known request, for forensic replay.
package callbacklog

import (
	"context"
	"time"
)

// Entry is one received callback. Rows are never mutated.
type Entry struct {
	ID             string
	CallbackType   string // result, timeout, collection, stk
	ConversationID string
	TransactionID  string
	ResultCode     string
	ResultDesc     string
	PartnerID      string // empty when no request matched
	DisbursementID string
	Raw            []byte
	CreatedAt      time.Time
}

// Log appends callback entries.
type Log interface {
	Append(ctx context.Context, entry Entry) error
	// ByConversationID returns entries for a correlation id, newest first.
	ByConversationID(ctx context.Context, conversationID string) ([]Entry, error)
}
