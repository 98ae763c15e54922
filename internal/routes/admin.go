package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/partner"
	"github.com/cbsvault/paymentvault/internal/wallet"
)

// RegisterAdminRoutes wires operator endpoints: partner onboarding and manual
// wallet adjustments, which go through the same ledger apply path as every
// other mutation.
func RegisterAdminRoutes(r fiber.Router, p *partner.Handler, w *wallet.Handler) {
	r.Post("/partners", p.Onboard)
	r.Get("/partners/:id", p.Get)
	r.Post("/wallets/credit", w.ManualCredit)
	r.Post("/wallets/debit", w.ManualDebit)
}
