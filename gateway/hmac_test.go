package gateway

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleTransaction() TransactionObject {
	return TransactionObject{
		ID:                   json.Number("9223372036854775717"),
		AmountCents:          json.Number("100000"),
		CreatedAt:            "2026-08-01T10:15:30.123456",
		Currency:             "EGP",
		ErrorOccured:         false,
		HasParentTransaction: false,
		IntegrationID:        json.Number("4411"),
		Is3DSecure:           true,
		IsAuth:               false,
		IsCapture:            false,
		IsRefunded:           false,
		IsStandalonePayment:  true,
		IsVoided:             false,
		Order: OrderRef{
			ID:              json.Number("188261126"),
			MerchantOrderID: "a2f7c6de-1111-4a6e-9c1e-000000000001",
		},
		Owner:   json.Number("92011"),
		Pending: false,
		SourceData: SourceData{
			Pan:     "2346",
			SubType: "MasterCard",
			Type:    "card",
		},
		Success: true,
	}
}

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("test-hmac-secret")
	txn := sampleTransaction()

	sig := v.Sign(&txn)
	if sig == "" {
		t.Fatal("Sign returned empty signature")
	}

	if err := v.Verify(&txn, sig); err != nil {
		t.Fatalf("Verify rejected a valid signature: %v", err)
	}

	// The gateway sends hex; case must not matter.
	if err := v.Verify(&txn, strings.ToUpper(sig)); err != nil {
		t.Fatalf("Verify rejected an upper-case signature: %v", err)
	}
}

func TestVerifyRejectsTamperedAmount(t *testing.T) {
	v := NewVerifier("test-hmac-secret")
	txn := sampleTransaction()
	sig := v.Sign(&txn)

	// Attacker changes the amount but cannot recompute the signature.
	txn.AmountCents = json.Number("1")

	if err := v.Verify(&txn, sig); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsFlippedSuccess(t *testing.T) {
	v := NewVerifier("test-hmac-secret")
	txn := sampleTransaction()
	txn.Success = false
	sig := v.Sign(&txn)

	txn.Success = true
	if err := v.Verify(&txn, sig); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsEmptySignature(t *testing.T) {
	v := NewVerifier("test-hmac-secret")
	txn := sampleTransaction()

	if err := v.Verify(&txn, ""); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	txn := sampleTransaction()
	sig := NewVerifier("secret-a").Sign(&txn)

	if err := NewVerifier("secret-b").Verify(&txn, sig); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestTransactionIDNoPrecisionLoss(t *testing.T) {
	txn := sampleTransaction()

	id, err := txn.TransactionID()
	if err != nil {
		t.Fatalf("TransactionID: %v", err)
	}
	// Larger than float64's 2^53 integer range; must survive exactly.
	if id != 9223372036854775717 {
		t.Fatalf("transaction id mangled: got %d", id)
	}
}
