package disbursement

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/cbsvault/paymentvault/internal/callbacklog"
	"github.com/cbsvault/paymentvault/internal/logging"
)

func newCallbackApp(f *fixture) *fiber.App {
	svc := NewService(f.requests, f.ledger, f.settlement, StaticClient{}, "", "", logging.Discard())
	h := NewHandler(svc, f.rec)
	app := fiber.New()
	app.Post("/callbacks/disbursements/result", h.ResultCallback)
	app.Post("/callbacks/disbursements/timeout", h.TimeoutCallback)
	return app
}

func postCallback(t *testing.T, app *fiber.App, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(b)
}

func TestUnparseableResultCallbackIsLoggedBeforeAck(t *testing.T) {
	f := newFixture(t)
	app := newCallbackApp(f)

	body := `{"Result":{"ConversationID":"AG_LOST"}}`
	status, ack := postCallback(t, app, "/callbacks/disbursements/result", body)
	if status != http.StatusOK || ack != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", status, ack)
	}

	entries, err := f.log.ByConversationID(context.Background(), "")
	if err != nil {
		t.Fatalf("log query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry for the malformed body, got %d", len(entries))
	}
	if string(entries[0].Raw) != body {
		t.Fatalf("logged raw %q, want %q", entries[0].Raw, body)
	}
	if entries[0].CallbackType != "disbursement_result" {
		t.Fatalf("callback type %q", entries[0].CallbackType)
	}
}

func TestUnparseableTimeoutCallbackIsLoggedBeforeAck(t *testing.T) {
	f := newFixture(t)
	app := newCallbackApp(f)

	status, ack := postCallback(t, app, "/callbacks/disbursements/timeout", "not json")
	if status != http.StatusOK || ack != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", status, ack)
	}

	entries, err := f.log.ByConversationID(context.Background(), "")
	if err != nil {
		t.Fatalf("log query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
}

type failingLog struct{}

func (failingLog) Append(context.Context, callbacklog.Entry) error {
	return errors.New("log store down")
}

func (failingLog) ByConversationID(context.Context, string) ([]callbacklog.Entry, error) {
	return nil, nil
}

func TestUnparseableCallbackIsNotAckedWhenLoggingFails(t *testing.T) {
	f := newFixture(t)
	f.rec = NewReconciler(f.requests, f.settlement, failingLog{}, f.notifier, logging.Discard())
	app := newCallbackApp(f)

	status, _ := postCallback(t, app, "/callbacks/disbursements/result", "not json")
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the provider retries, got %d", status)
	}
}
