package collections

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/callbacklog"
	"github.com/cbsvault/paymentvault/internal/ledger"
	"github.com/cbsvault/paymentvault/internal/logging"
	"github.com/cbsvault/paymentvault/internal/partner"
)

func TestUnparseableNotificationIsLoggedBeforeRejection(t *testing.T) {
	log := callbacklog.NewMemoryLog()
	svc := NewService(NewMemoryRepository(), partner.NewMemoryRepository(), ledger.NewInMemory(),
		log, testCreds, "#", logging.Discard())

	app := fiber.New()
	app.Post("/callbacks/collections", NewHandler(svc).Notify)

	body := `not json at all`
	req := httptest.NewRequest(http.MethodPost, "/callbacks/collections", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with a rejection ack, got %d %q", resp.StatusCode, b)
	}

	entries, err := log.ByConversationID(context.Background(), "")
	if err != nil {
		t.Fatalf("log query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry for the malformed body, got %d", len(entries))
	}
	if string(entries[0].Raw) != body {
		t.Fatalf("logged raw %q, want %q", entries[0].Raw, body)
	}
}
