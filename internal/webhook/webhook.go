package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event describes a terminal transaction outcome delivered to an origin
// system.
type Event struct {
	Type          string `json:"event"`
	TransactionID string `json:"transaction_id"`
	PartnerID     string `json:"partner_id"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
}

// Notifier delivers events to downstream origin systems. Delivery is best
// effort; callers log failures and never let them affect callback handling.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LoggerNotifier is a stub implementation that writes events to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Notify writes the event to the structured logger.
func (n *LoggerNotifier) Notify(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("origin webhook",
		"event", event.Type,
		"transaction_id", event.TransactionID,
		"partner_id", event.PartnerID,
		"amount", event.Amount)
	return nil
}

// HTTPNotifier posts events to a configured origin URL with its own bounded
// timeout, independent of the inbound callback's deadline.
type HTTPNotifier struct {
	url  string
	http *http.Client
}

// NewHTTPNotifier builds a notifier for the origin URL. insecure skips TLS
// certificate verification for origin systems running self-signed
// certificates; it affects only this client.
func NewHTTPNotifier(url string, timeout time.Duration, insecure bool) *HTTPNotifier {
	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &HTTPNotifier{
		url: url,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Notify posts the event as JSON. Any non-2xx response is an error.
func (n *HTTPNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("origin returned status %d", resp.StatusCode)
	}
	return nil
}
