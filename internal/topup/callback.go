package topup

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Callback is the normalized form of a push-payment callback. Providers send
// several shapes for the same event; extraction tolerates all of them.
type Callback struct {
	Reference         string
	MerchantRequestID string
	ResultCode        int
	ResultDesc        string
	Receipt           string
	Raw               []byte
}

// Success reports whether the callback confirms payment.
func (c Callback) Success() bool { return c.ResultCode == 0 }

type stkEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        any    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`

	// Flat form used by aggregator gateways.
	TransactionID     string `json:"transactionId"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	FlatResultCode    any    `json:"resultCode"`
	FlatResultDesc    string `json:"resultDesc"`
	FlatReceipt       string `json:"mpesaReceiptNumber"`
}

// ParseCallback decodes a raw push-payment callback, accepting both the
// nested Body.stkCallback envelope and the flat aggregator form.
func ParseCallback(raw []byte) (Callback, error) {
	var env stkEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Callback{}, fmt.Errorf("decode top-up callback: %w", err)
	}

	stk := env.Body.StkCallback
	if stk.CheckoutRequestID != "" {
		code, ok := coerceCode(stk.ResultCode)
		if !ok {
			return Callback{}, fmt.Errorf("top-up callback missing ResultCode")
		}
		cb := Callback{
			Reference:         stk.CheckoutRequestID,
			MerchantRequestID: stk.MerchantRequestID,
			ResultCode:        code,
			ResultDesc:        stk.ResultDesc,
			Raw:               raw,
		}
		for _, item := range stk.CallbackMetadata.Item {
			if item.Name == "MpesaReceiptNumber" {
				if s, ok := item.Value.(string); ok {
					cb.Receipt = s
				}
			}
		}
		return cb, nil
	}

	ref := env.TransactionID
	if ref == "" {
		ref = env.CheckoutRequestID
	}
	if ref == "" {
		return Callback{}, fmt.Errorf("top-up callback names no transaction")
	}
	code, ok := coerceCode(env.FlatResultCode)
	if !ok {
		return Callback{}, fmt.Errorf("top-up callback missing result code")
	}
	return Callback{
		Reference:  ref,
		ResultCode: code,
		ResultDesc: env.FlatResultDesc,
		Receipt:    env.FlatReceipt,
		Raw:        raw,
	}, nil
}

func coerceCode(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	default:
		return 0, false
	}
}
