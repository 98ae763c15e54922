package collections

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no collection record matched.
	ErrNotFound = errors.New("collection record not found")
	// ErrDuplicate indicates a record already exists for the provider
	// transaction id.
	ErrDuplicate = errors.New("collection already recorded")
	// ErrUnknownPartner indicates the bill reference resolved to no active
	// partner.
	ErrUnknownPartner = errors.New("bill reference matches no active partner")
)

// Record is one accepted inbound payment, stored immutably as received.
type Record struct {
	ID        string
	TransID   string
	TransType string
	TransTime string
	Amount    int64 // minor units
	MSISDN    string
	PayerName string
	ShortCode string
	BillRef   string
	Account   string
	PartnerID string
	WalletID  string
	CreatedAt time.Time
}
