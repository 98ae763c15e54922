package ledger

// SeedWallet is a test helper that provisions a wallet for a partner on the
// in-memory ledger and sets its starting balance without a ledger entry.
func SeedWallet(l Ledger, partnerID string, balance int64) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	w := mem.ensureWalletLocked(partnerID)
	w.CurrentBalance = balance
}
