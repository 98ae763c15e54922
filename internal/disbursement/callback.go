package disbursement

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ResultCallback is the normalized form of a provider result webhook. Every
// field beyond the result code is optional; absence never aborts processing.
type ResultCallback struct {
	ConversationID           string
	OriginatorConversationID string
	TransactionID            string
	ResultCode               int
	ResultDesc               string
	Occasion                 string
	TransactionReceipt       string
	TransactionAmount        int64
	TransactionDate          string
	WorkingFunds             float64
	UtilityFunds             float64
	Raw                      []byte
}

type resultEnvelope struct {
	Result resultPayload `json:"Result"`
}

type resultPayload struct {
	ResultType               any    `json:"ResultType"`
	ResultCode               any    `json:"ResultCode"`
	ResultDesc               string `json:"ResultDesc"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ConversationID           string `json:"ConversationID"`
	TransactionID            string `json:"TransactionID"`
	ResultParameters         struct {
		ResultParameter []keyValue `json:"ResultParameter"`
	} `json:"ResultParameters"`
	ReferenceData struct {
		ReferenceItem json.RawMessage `json:"ReferenceItem"`
	} `json:"ReferenceData"`
}

type keyValue struct {
	Key   string `json:"Key"`
	Value any    `json:"Value"`
}

// ParseResult decodes a raw provider result payload. The provider is loose
// about numeric types (some fields arrive as strings, some as numbers) and
// about whether ReferenceItem is an object or an array, so every extraction
// coerces rather than assumes.
func ParseResult(raw []byte) (ResultCallback, error) {
	var env resultEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ResultCallback{}, fmt.Errorf("decode result callback: %w", err)
	}
	p := env.Result

	code, ok := coerceInt(p.ResultCode)
	if !ok {
		return ResultCallback{}, fmt.Errorf("result callback missing ResultCode")
	}

	cb := ResultCallback{
		ConversationID:           p.ConversationID,
		OriginatorConversationID: p.OriginatorConversationID,
		TransactionID:            p.TransactionID,
		ResultCode:               code,
		ResultDesc:               p.ResultDesc,
		Raw:                      raw,
	}

	for _, kv := range p.ResultParameters.ResultParameter {
		switch kv.Key {
		case "TransactionReceipt":
			cb.TransactionReceipt, _ = coerceString(kv.Value)
		case "TransactionAmount":
			if f, ok := coerceFloat(kv.Value); ok {
				cb.TransactionAmount = int64(math.Round(f * 100))
			}
		case "TransactionCompletedDateTime":
			cb.TransactionDate, _ = coerceString(kv.Value)
		case "B2CWorkingAccountAvailableFunds":
			cb.WorkingFunds, _ = coerceFloat(kv.Value)
		case "B2CUtilityAccountAvailableFunds":
			cb.UtilityFunds, _ = coerceFloat(kv.Value)
		}
	}

	cb.Occasion = extractOccasion(p.ReferenceData.ReferenceItem)
	return cb, nil
}

// TimeoutCallback identifies the request a queue-timeout webhook refers to.
type TimeoutCallback struct {
	ConversationID           string
	OriginatorConversationID string
	Occasion                 string
	Raw                      []byte
}

// ParseTimeout decodes a raw provider timeout payload. It shares the result
// envelope shape but no result parameters are expected.
func ParseTimeout(raw []byte) (TimeoutCallback, error) {
	var env resultEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return TimeoutCallback{}, fmt.Errorf("decode timeout callback: %w", err)
	}
	return TimeoutCallback{
		ConversationID:           env.Result.ConversationID,
		OriginatorConversationID: env.Result.OriginatorConversationID,
		Occasion:                 extractOccasion(env.Result.ReferenceData.ReferenceItem),
		Raw:                      raw,
	}, nil
}

func extractOccasion(ref json.RawMessage) string {
	if len(ref) == 0 {
		return ""
	}
	var one keyValue
	if err := json.Unmarshal(ref, &one); err == nil && one.Key != "" {
		if one.Key == "Occasion" {
			s, _ := coerceString(one.Value)
			return s
		}
		return ""
	}
	var many []keyValue
	if err := json.Unmarshal(ref, &many); err == nil {
		for _, kv := range many {
			if kv.Key == "Occasion" {
				s, _ := coerceString(kv.Value)
				return s
			}
		}
	}
	return ""
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceInt(v any) (int, bool) {
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
