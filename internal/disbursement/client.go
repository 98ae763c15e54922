package disbursement

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
// The disbursement stays pending; the outcome arrives via callback.
var ErrExternalCallFailed = errors.New("provider call failed")

// Client represents a connector to the mobile-money provider's payout API.
type Client interface {
	SendB2C(ctx context.Context, input B2CPayment) (B2CResponse, error)
}

// B2CPayment encapsulates details for one business-to-customer payout.
type B2CPayment struct {
	RequestID  string // carried back as Occasion on the callback
	MSISDN     string
	Amount     int64
	Remarks    string
	ResultURL  string
	TimeoutURL string
}

// B2CResponse captures the provider's synchronous acceptance.
type B2CResponse struct {
	ConversationID           string
	OriginatorConversationID string
	ResponseDescription      string
}

// StaticClient simulates a provider that accepts every payout.
type StaticClient struct{}

// SendB2C accepts the payout with a synthetic conversation id.
func (StaticClient) SendB2C(_ context.Context, input B2CPayment) (B2CResponse, error) {
	return B2CResponse{
		ConversationID:           uuid.NewString(),
		OriginatorConversationID: input.RequestID,
		ResponseDescription:      "Accept the service request successfully.",
	}, nil
}

// HTTPClient talks to the provider's B2C endpoint.
type HTTPClient struct {
	baseURL   string
	shortCode string
	http      *http.Client
}

// NewHTTPClient builds a provider client with a bounded request timeout.
func NewHTTPClient(baseURL, shortCode string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		shortCode: shortCode,
		http:      &http.Client{Timeout: timeout},
	}
}

type b2cRequestBody struct {
	OriginatorConversationID string `json:"OriginatorConversationID"`
	CommandID                string `json:"CommandID"`
	Amount                   int64  `json:"Amount"`
	PartyA                   string `json:"PartyA"`
	PartyB                   string `json:"PartyB"`
	Remarks                  string `json:"Remarks"`
	ResultURL                string `json:"ResultURL"`
	QueueTimeOutURL          string `json:"QueueTimeOutURL"`
	Occasion                 string `json:"Occasion"`
}

type b2cResponseBody struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// SendB2C submits the payout. The provider amount is in whole currency units.
func (c *HTTPClient) SendB2C(ctx context.Context, input B2CPayment) (B2CResponse, error) {
	body := b2cRequestBody{
		OriginatorConversationID: input.RequestID,
		CommandID:                "BusinessPayment",
		Amount:                   input.Amount / 100,
		PartyA:                   c.shortCode,
		PartyB:                   input.MSISDN,
		Remarks:                  input.Remarks,
		ResultURL:                input.ResultURL,
		QueueTimeOutURL:          input.TimeoutURL,
		Occasion:                 input.RequestID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return B2CResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/b2c/paymentrequest", bytes.NewReader(payload))
	if err != nil {
		return B2CResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return B2CResponse{}, fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return B2CResponse{}, fmt.Errorf("%w: status %d", ErrExternalCallFailed, resp.StatusCode)
	}

	var out b2cResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return B2CResponse{}, fmt.Errorf("%w: %v", ErrExternalCallFailed, err)
	}
	if out.ResponseCode != "0" {
		return B2CResponse{}, fmt.Errorf("provider refused payout: %s", out.ResponseDescription)
	}
	return B2CResponse{
		ConversationID:           out.ConversationID,
		OriginatorConversationID: out.OriginatorConversationID,
		ResponseDescription:      out.ResponseDescription,
	}, nil
}
