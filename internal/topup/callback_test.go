package topup

import "testing"

func TestParseCallbackNestedEnvelope(t *testing.T) {
	raw := `{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_123",
        "ResultCode":0,"ResultDesc":"The service request is processed successfully.",
        "CallbackMetadata":{"Item":[{"Name":"Amount","Value":2000},{"Name":"MpesaReceiptNumber","Value":"RKT55"},{"Name":"PhoneNumber","Value":254711000000}]}}}}`
	cb, err := ParseCallback([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.Reference != "ws_CO_123" || cb.MerchantRequestID != "mr-1" {
		t.Fatalf("unexpected identifiers %+v", cb)
	}
	if !cb.Success() || cb.Receipt != "RKT55" {
		t.Fatalf("unexpected outcome %+v", cb)
	}
}

func TestParseCallbackNestedFailure(t *testing.T) {
	raw := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_124","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`
	cb, err := ParseCallback([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.Success() || cb.ResultCode != 1032 {
		t.Fatalf("unexpected outcome %+v", cb)
	}
}

func TestParseCallbackFlatForm(t *testing.T) {
	raw := `{"transactionId":"TX9","resultCode":"0","resultDesc":"ok","mpesaReceiptNumber":"RKT66"}`
	cb, err := ParseCallback([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.Reference != "TX9" || !cb.Success() || cb.Receipt != "RKT66" {
		t.Fatalf("unexpected callback %+v", cb)
	}
}

func TestParseCallbackRejectsAnonymousPayload(t *testing.T) {
	if _, err := ParseCallback([]byte(`{"resultCode":"0"}`)); err == nil {
		t.Fatal("expected error when no transaction is named")
	}
}
