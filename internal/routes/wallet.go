package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/wallet"
)

// RegisterWalletRoutes wires partner-facing wallet queries.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Balance)
	r.Get("/wallet/transactions", h.Transactions)
}
