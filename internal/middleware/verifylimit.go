package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// VerifyAttemptLimit bounds provider status queries per top-up using Redis if
// available. Exhausting the budget returns 429 and leaves the top-up pending
// for operator follow-up; it never fails the transaction itself.
func VerifyAttemptLimit(cache *redis.Client, maxAttempts int, window time.Duration) fiber.Handler {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = time.Hour
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		id := c.Params("id")
		if id == "" {
			return c.Next()
		}
		key := "rl:verify:" + id
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, window)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxAttempts) {
			return fiber.NewError(http.StatusTooManyRequests, "verification attempts exhausted, contact support")
		}
		return c.Next()
	}
}
