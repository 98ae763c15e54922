package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestVerifyAttemptLimitExhaustion(t *testing.T) {
	cache := newRedis(t)
	app := fiber.New()
	app.Post("/topups/:id/verify", VerifyAttemptLimit(cache, 3, time.Hour), func(c *fiber.Ctx) error {
		return c.SendString("pending")
	})

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/topups/tx-1/verify", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		statuses = append(statuses, resp.StatusCode)
	}

	for i := 0; i < 3; i++ {
		if statuses[i] != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, statuses[i])
		}
	}
	if statuses[3] != fiber.StatusTooManyRequests {
		t.Fatalf("fourth attempt: expected 429, got %d", statuses[3])
	}
}

func TestVerifyAttemptLimitScopedPerTopup(t *testing.T) {
	cache := newRedis(t)
	app := fiber.New()
	app.Post("/topups/:id/verify", VerifyAttemptLimit(cache, 1, time.Hour), func(c *fiber.Ctx) error {
		return c.SendString("pending")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/topups/tx-1/verify", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/topups/tx-2/verify", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("other top-up must have its own budget, got %d", resp.StatusCode)
	}
}

func TestVerifyAttemptLimitNoopWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/topups/:id/verify", VerifyAttemptLimit(nil, 1, time.Hour), func(c *fiber.Ctx) error {
		return c.SendString("pending")
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/topups/tx-1/verify", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected pass-through without redis, got %d", resp.StatusCode)
		}
	}
}
