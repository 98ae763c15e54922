package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/topup"
)

// RegisterTopupRoutes wires partner-facing top-up endpoints. The verify
// endpoint carries its own attempt limiter.
func RegisterTopupRoutes(r fiber.Router, h *topup.Handler, verifyLimit fiber.Handler) {
	r.Post("/topups", h.Initiate)
	r.Get("/topups/:id", h.Get)
	r.Post("/topups/:id/verify", verifyLimit, h.Verify)
}
