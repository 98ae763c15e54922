package partner

import "time"

// Partner is a tenant of the platform. Wallets, disbursements and collections
// all hang off a partner id.
type Partner struct {
	ID         string
	Name       string
	ShortName  string
	IsActive   bool
	APIKeyHash []byte
	CreatedAt  time.Time
}
