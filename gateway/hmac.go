package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidSignature is returned when a webhook's HMAC does not match.
// A webhook carrying it must cause zero state mutation.
var ErrInvalidSignature = errors.New("invalid signature")

// HMACHeader is the header the gateway signs webhook deliveries with; the
// same value may arrive as the "hmac" query parameter on redirects.
const HMACHeader = "X-Paymob-HMAC"

// Verifier validates webhook authenticity against the shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given shared secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// canonicalString concatenates the transaction fields in the gateway's
// documented signing order. The order is the vendor's published
// transaction-HMAC field sequence and is security-critical: any change
// must come from the gateway's documentation, never from guesswork.
func canonicalString(t *TransactionObject) string {
	var b strings.Builder
	b.WriteString(t.AmountCents.String())
	b.WriteString(t.CreatedAt)
	b.WriteString(t.Currency)
	b.WriteString(strconv.FormatBool(t.ErrorOccured))
	b.WriteString(strconv.FormatBool(t.HasParentTransaction))
	b.WriteString(t.ID.String())
	b.WriteString(t.IntegrationID.String())
	b.WriteString(strconv.FormatBool(t.Is3DSecure))
	b.WriteString(strconv.FormatBool(t.IsAuth))
	b.WriteString(strconv.FormatBool(t.IsCapture))
	b.WriteString(strconv.FormatBool(t.IsRefunded))
	b.WriteString(strconv.FormatBool(t.IsStandalonePayment))
	b.WriteString(strconv.FormatBool(t.IsVoided))
	b.WriteString(t.Order.ID.String())
	b.WriteString(t.Owner.String())
	b.WriteString(strconv.FormatBool(t.Pending))
	b.WriteString(t.SourceData.Pan)
	b.WriteString(t.SourceData.SubType)
	b.WriteString(t.SourceData.Type)
	b.WriteString(strconv.FormatBool(t.Success))
	return b.String()
}

// Sign computes the hex HMAC-SHA512 of a transaction's canonical string.
func (v *Verifier) Sign(t *TransactionObject) string {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write([]byte(canonicalString(t)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over the received transaction fields and
// compares it in constant time against the received one. Returns
// ErrInvalidSignature on any mismatch, including an empty signature.
func (v *Verifier) Verify(t *TransactionObject, received string) error {
	if received == "" {
		return ErrInvalidSignature
	}
	expected := v.Sign(t)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return ErrInvalidSignature
	}
	return nil
}
