package charges

// Mode determines when a charge is deducted from the wallet.
type Mode string

const (
	// ModeInline charges are reserved as a pending wallet transaction when
	// the billable event is initiated and deducted by the reconciler once the
	// event is confirmed.
	ModeInline Mode = "inline"
	// ModeDeferred charges are deducted separately at settlement time with
	// their own ledger reference.
	ModeDeferred Mode = "deferred"
)

// Config describes how a fee is computed for a partner and charge type.
type Config struct {
	ID           string
	PartnerID    string
	ChargeType   string // e.g. "disbursement", "sms"
	Name         string
	FixedAmount  int64   // minor units
	Percentage   float64 // of the transaction amount, 0 disables
	MinimumCents int64   // 0 disables
	MaximumCents int64   // 0 disables
	Mode         Mode
	IsActive     bool
}

// Calculate computes the fee in minor units for a transaction amount. The
// greater of the fixed amount and the percentage applies, clamped to the
// configured minimum and maximum.
func Calculate(cfg Config, transactionAmount int64) int64 {
	amount := cfg.FixedAmount
	if cfg.Percentage > 0 && transactionAmount > 0 {
		pct := int64(float64(transactionAmount) * cfg.Percentage / 100)
		if pct > amount {
			amount = pct
		}
	}
	if cfg.MinimumCents > 0 && amount < cfg.MinimumCents {
		amount = cfg.MinimumCents
	}
	if cfg.MaximumCents > 0 && amount > cfg.MaximumCents {
		amount = cfg.MaximumCents
	}
	return amount
}
