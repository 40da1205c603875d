package gateway

import (
	"encoding/json"
)

// EventTypeTransaction is the webhook event type the reconciler consumes.
// Other event types (token saves, deliveries, ...) are acknowledged and
// ignored.
const EventTypeTransaction = "TRANSACTION"

// WebhookEvent is the envelope of a gateway webhook callback.
type WebhookEvent struct {
	Type string            `json:"type"`
	Obj  TransactionObject `json:"obj"`
}

// TransactionObject carries the transaction fields of a webhook event.
// Numeric identifiers are json.Number: the gateway issues 64-bit ids and
// the raw textual form is also what the HMAC is computed over, so nothing
// here may round-trip through a float.
type TransactionObject struct {
	ID                   json.Number `json:"id"`
	AmountCents          json.Number `json:"amount_cents"`
	CreatedAt            string      `json:"created_at"`
	Currency             string      `json:"currency"`
	ErrorOccured         bool        `json:"error_occured"`
	HasParentTransaction bool        `json:"has_parent_transaction"`
	IntegrationID        json.Number `json:"integration_id"`
	Is3DSecure           bool        `json:"is_3d_secure"`
	IsAuth               bool        `json:"is_auth"`
	IsCapture            bool        `json:"is_capture"`
	IsRefunded           bool        `json:"is_refunded"`
	IsStandalonePayment  bool        `json:"is_standalone_payment"`
	IsVoided             bool        `json:"is_voided"`
	Order                OrderRef    `json:"order"`
	Owner                json.Number `json:"owner"`
	Pending              bool        `json:"pending"`
	SourceData           SourceData  `json:"source_data"`
	Success              bool        `json:"success"`

	// Data carries gateway-specific decline details. Advisory only.
	Data TransactionData `json:"data"`
}

// OrderRef identifies the gateway order a transaction belongs to.
type OrderRef struct {
	ID              json.Number `json:"id"`
	MerchantOrderID string      `json:"merchant_order_id"`
}

// SourceData describes the payment instrument used.
type SourceData struct {
	Pan     string `json:"pan"`
	SubType string `json:"sub_type"`
	Type    string `json:"type"`
}

// TransactionData is the free-form detail block of a transaction. Only the
// decline-related fields are modeled; they feed the advisory failure
// classification, never the authoritative status decision.
type TransactionData struct {
	Message         string `json:"message"`
	TxnResponseCode string `json:"txn_response_code"`
}

// TransactionID returns the gateway transaction id as int64.
func (t *TransactionObject) TransactionID() (int64, error) {
	return t.ID.Int64()
}

// GatewayOrderID returns the gateway order id as a string key, the form
// payments are stored and looked up under.
func (t *TransactionObject) GatewayOrderID() string {
	return t.Order.ID.String()
}

// OrderSession is the result of the outbound order-creation flow: the
// gateway order plus the client-facing payment key the hosted page is
// opened with. Raw keeps the unparsed payment-key response for audit; no
// code path reads fields out of it.
type OrderSession struct {
	GatewayOrderID string
	PaymentKey     string
	Raw            json.RawMessage
}

// authResponse, orderResponse and paymentKeyResponse are the typed shapes
// of the three outbound calls. They model exactly the fields read.
type authResponse struct {
	Token string `json:"token"`
}

type orderResponse struct {
	ID json.Number `json:"id"`
}

type paymentKeyResponse struct {
	Token string `json:"token"`
}
