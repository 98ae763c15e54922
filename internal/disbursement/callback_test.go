package disbursement

import "testing"

const sampleResult = `{
  "Result": {
    "ResultType": 0,
    "ResultCode": 0,
    "ResultDesc": "The service request is processed successfully.",
    "OriginatorConversationID": "orig-123",
    "ConversationID": "AG_20240901_0000abc",
    "TransactionID": "RKT000XYZ",
    "ResultParameters": {
      "ResultParameter": [
        {"Key": "TransactionReceipt", "Value": "RKT000XYZ"},
        {"Key": "TransactionAmount", "Value": 500},
        {"Key": "TransactionCompletedDateTime", "Value": "01.09.2024 14:05:11"},
        {"Key": "B2CWorkingAccountAvailableFunds", "Value": 120000.50},
        {"Key": "B2CUtilityAccountAvailableFunds", "Value": "4500.00"}
      ]
    },
    "ReferenceData": {
      "ReferenceItem": {"Key": "Occasion", "Value": "disb-1"}
    }
  }
}`

func TestParseResultExtractsAllFields(t *testing.T) {
	cb, err := ParseResult([]byte(sampleResult))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.ConversationID != "AG_20240901_0000abc" || cb.ResultCode != 0 {
		t.Fatalf("unexpected identity fields %+v", cb)
	}
	if cb.TransactionReceipt != "RKT000XYZ" {
		t.Fatalf("receipt = %q", cb.TransactionReceipt)
	}
	if cb.TransactionAmount != 500_00 {
		t.Fatalf("amount = %d, expected minor units", cb.TransactionAmount)
	}
	if cb.Occasion != "disb-1" {
		t.Fatalf("occasion = %q", cb.Occasion)
	}
	if cb.WorkingFunds != 120000.50 || cb.UtilityFunds != 4500 {
		t.Fatalf("funds = %v / %v", cb.WorkingFunds, cb.UtilityFunds)
	}
}

func TestParseResultToleratesStringCodeAndArrayReference(t *testing.T) {
	raw := `{"Result":{"ResultCode":"2001","ResultDesc":"The initiator information is invalid.",
        "ConversationID":"AG_1","ReferenceData":{"ReferenceItem":[{"Key":"QueueTimeoutURL","Value":"https://x"},{"Key":"Occasion","Value":"disb-9"}]}}}`
	cb, err := ParseResult([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.ResultCode != 2001 {
		t.Fatalf("code = %d", cb.ResultCode)
	}
	if cb.Occasion != "disb-9" {
		t.Fatalf("occasion = %q", cb.Occasion)
	}
}

func TestParseResultMissingOptionalParametersIsFine(t *testing.T) {
	cb, err := ParseResult([]byte(`{"Result":{"ResultCode":0,"ConversationID":"AG_2"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.TransactionReceipt != "" || cb.TransactionAmount != 0 || cb.Occasion != "" {
		t.Fatalf("optional fields must default, got %+v", cb)
	}
}

func TestParseResultRejectsMissingCode(t *testing.T) {
	if _, err := ParseResult([]byte(`{"Result":{"ConversationID":"AG_3"}}`)); err == nil {
		t.Fatal("expected error without ResultCode")
	}
}

func TestParseTimeout(t *testing.T) {
	raw := `{"Result":{"ConversationID":"AG_4","OriginatorConversationID":"orig-4",
        "ReferenceData":{"ReferenceItem":{"Key":"Occasion","Value":"disb-4"}}}}`
	cb, err := ParseTimeout([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.ConversationID != "AG_4" || cb.Occasion != "disb-4" {
		t.Fatalf("unexpected timeout callback %+v", cb)
	}
}
