package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth gates operator endpoints behind a shared key presented in the
// X-Admin-Key header.
func AdminAuth(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return fiber.NewError(http.StatusForbidden, "admin endpoints disabled")
		}
		presented := c.Get("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			return fiber.NewError(http.StatusUnauthorized, "invalid admin key")
		}
		return c.Next()
	}
}
