package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPNotifierPostsEvent(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, 2*time.Second, false)
	err := n.Notify(context.Background(), Event{
		Type:          "disbursement.success",
		TransactionID: "disb-1",
		PartnerID:     "partner-1",
		Amount:        500_00,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Type != "disbursement.success" || got.TransactionID != "disb-1" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestHTTPNotifierErrorsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, 2*time.Second, false)
	if err := n.Notify(context.Background(), Event{Type: "disbursement.failed"}); err == nil {
		t.Fatal("expected error on 502")
	}
}
