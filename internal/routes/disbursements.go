package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/disbursement"
)

// RegisterDisbursementRoutes wires partner-facing payout endpoints.
func RegisterDisbursementRoutes(r fiber.Router, h *disbursement.Handler) {
	r.Post("/disbursements", h.Initiate)
	r.Get("/disbursements/:id", h.Get)
}
