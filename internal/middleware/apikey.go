package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/partner"
)

// PartnerAuth authenticates requests with the X-Partner-ID and X-API-Key
// header pair and stores the partner id in request locals.
func PartnerAuth(partners *partner.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		partnerID := strings.TrimSpace(c.Get("X-Partner-ID"))
		apiKey := strings.TrimSpace(c.Get("X-API-Key"))
		if partnerID == "" || apiKey == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing api credentials")
		}

		p, err := partners.Authenticate(c.UserContext(), partnerID, apiKey)
		if err != nil {
			// Unknown partner and wrong key answer identically.
			return fiber.NewError(http.StatusUnauthorized, "invalid api credentials")
		}

		c.Locals("partner_id", p.ID)
		c.Locals("partner_name", p.Name)
		return c.Next()
	}
}
