package topup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrExternalCallFailed indicates the provider request errored or timed out.
// Callers leave the top-up pending and retry later; a timed-out query never
// implies failure.
var ErrExternalCallFailed = errors.New("provider call failed")

// Outcome is the provider's view of a push payment.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

// PushInput starts a push payment on the customer's phone.
type PushInput struct {
	MSISDN      string
	Amount      int64
	AccountRef  string
	Description string
	CallbackURL string
}

// PushResponse carries the provider-assigned identifiers.
type PushResponse struct {
	Reference         string // transaction id the callback will name
	MerchantRequestID string
}

// StatusResult is the answer to a status query.
type StatusResult struct {
	Outcome    Outcome
	Receipt    string
	ResultCode string
	ResultDesc string
}

// Client represents a connector to the provider's push-payment API.
type Client interface {
	Push(ctx context.Context, input PushInput) (PushResponse, error)
	QueryStatus(ctx context.Context, reference string) (StatusResult, error)
}

// StaticClient simulates a provider that accepts every push and reports
// success on query.
type StaticClient struct{}

func (StaticClient) Push(_ context.Context, _ PushInput) (PushResponse, error) {
	return PushResponse{
		Reference:         uuid.NewString(),
		MerchantRequestID: uuid.NewString(),
	}, nil
}

func (StaticClient) QueryStatus(_ context.Context, reference string) (StatusResult, error) {
	return StatusResult{Outcome: OutcomeSuccess, Receipt: "SIM-" + reference, ResultCode: "0"}, nil
}

// HTTPClient talks to the provider's push-payment endpoints with an API key
// and a bounded timeout per call.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient builds a provider client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type pushRequestBody struct {
	PhoneNumber      string `json:"phoneNumber"`
	Amount           int64  `json:"amount"`
	AccountReference string `json:"accountReference"`
	Description      string `json:"transactionDesc"`
	CallbackURL      string `json:"callbackUrl"`
}

type pushResponseBody struct {
	TransactionID     string `json:"transactionId"`
	MerchantRequestID string `json:"merchantRequestId"`
	ResponseCode      string `json:"responseCode"`
	ResponseMessage   string `json:"responseMessage"`
}

func (c *HTTPClient) Push(ctx context.Context, input PushInput) (PushResponse, error) {
	body := pushRequestBody{
		PhoneNumber:      input.MSISDN,
		Amount:           input.Amount / 100,
		AccountReference: input.AccountRef,
		Description:      input.Description,
		CallbackURL:      input.CallbackURL,
	}
	var out pushResponseBody
	if err := c.post(ctx, "/payments/stkpush", body, &out); err != nil {
		return PushResponse{}, err
	}
	if out.ResponseCode != "0" {
		return PushResponse{}, fmt.Errorf("provider refused push: %s", out.ResponseMessage)
	}
	if out.TransactionID == "" {
		return PushResponse{}, fmt.Errorf("%w: push response missing transaction id", ErrExternalCallFailed)
	}
	return PushResponse{Reference: out.TransactionID, MerchantRequestID: out.MerchantRequestID}, nil
}

type queryResponseBody struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"` // SUCCESS, FAILED, PENDING
	Receipt       string `json:"mpesaReceiptNumber"`
	ResultCode    string `json:"resultCode"`
	ResultDesc    string `json:"resultDesc"`
}

func (c *HTTPClient) QueryStatus(ctx context.Context, reference string) (StatusResult, error) {
	var out queryResponseBody
	err := c.post(ctx, "/payments/stkpush/query", map[string]string{"transactionId": reference}, &out)
	if err != nil {
		return StatusResult{}, err
	}
	res := StatusResult{Receipt: out.Receipt, ResultCode: out.ResultCode, ResultDesc: out.ResultDesc}
	switch out.Status {
	case "SUCCESS":
		res.Outcome = OutcomeSuccess
	case "FAILED":
		res.Outcome = OutcomeFailed
	default:
		res.Outcome = OutcomePending
	}
	return res, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrExternalCallFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
	}
	return nil
}
