package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/collections"
	"github.com/cbsvault/paymentvault/internal/disbursement"
	"github.com/cbsvault/paymentvault/internal/topup"
)

// RegisterCallbackRoutes wires the provider-facing webhooks.
func RegisterCallbackRoutes(app *fiber.App, d *disbursement.Handler, c *collections.Handler, t *topup.Handler) {
	cb := app.Group("/callbacks")
	cb.Post("/disbursements/result", d.ResultCallback)
	cb.Post("/disbursements/timeout", d.TimeoutCallback)
	cb.Post("/collections", c.Notify)
	cb.Post("/topups", t.Callback)
}
