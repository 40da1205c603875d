package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds every outbound call to the gateway. Order
	// creation blocks the checkout response, so hangs must surface as a
	// retryable PAYMENT_GATEWAY_ERROR instead.
	DefaultTimeout = 15 * time.Second

	authPath       = "/api/auth/tokens"
	orderPath      = "/api/ecommerce/orders"
	paymentKeyPath = "/api/acceptance/payment_keys"
	iframePath     = "/api/acceptance/iframes"
)

// Config holds configuration for the gateway client
type Config struct {
	APIKey        string
	BaseURL       string
	IntegrationID string
	IframeID      string
	Timeout       time.Duration
}

// Client handles outbound calls to the payment gateway: authentication,
// order registration and payment-key issuance.
type Client struct {
	apiKey        string
	baseURL       string
	integrationID string
	iframeID      string
	httpClient    *http.Client
}

// NewClient creates a new gateway client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		apiKey:        config.APIKey,
		baseURL:       config.BaseURL,
		integrationID: config.IntegrationID,
		iframeID:      config.IframeID,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// BillingData is the payer information the gateway requires on a payment
// key request. Missing fields are sent as "NA" per the gateway contract.
type BillingData struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Street    string `json:"street"`
	Building  string `json:"building"`
	Floor     string `json:"floor"`
	Apartment string `json:"apartment"`
}

func (b *BillingData) fillDefaults() {
	fields := []*string{
		&b.FirstName, &b.LastName, &b.Phone, &b.Country,
		&b.City, &b.Street, &b.Building, &b.Floor, &b.Apartment,
	}
	for _, f := range fields {
		if *f == "" {
			*f = "NA"
		}
	}
}

// CreateOrder runs the full outbound flow: authenticate, register the
// order under our merchant reference, then request the client-facing
// payment key. amountCents is the integer minor-unit amount.
func (c *Client) CreateOrder(ctx context.Context, merchantOrderID string, amountCents int64, currency string, billing BillingData) (*OrderSession, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	orderID, err := c.registerOrder(ctx, token, merchantOrderID, amountCents, currency)
	if err != nil {
		return nil, err
	}

	paymentKey, raw, err := c.requestPaymentKey(ctx, token, orderID, amountCents, currency, billing)
	if err != nil {
		return nil, err
	}

	return &OrderSession{
		GatewayOrderID: orderID,
		PaymentKey:     paymentKey,
		Raw:            raw,
	}, nil
}

// IframeURL builds the hosted-payment-page URL for a payment key.
func (c *Client) IframeURL(paymentKey string) string {
	return fmt.Sprintf("%s%s/%s?payment_token=%s", c.baseURL, iframePath, c.iframeID, paymentKey)
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	var res authResponse
	_, err := c.post(ctx, "authenticate", authPath, map[string]interface{}{
		"api_key": c.apiKey,
	}, &res)
	if err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", &Error{Kind: KindUnknown, Op: "authenticate", Err: fmt.Errorf("empty auth token")}
	}
	return res.Token, nil
}

func (c *Client) registerOrder(ctx context.Context, token, merchantOrderID string, amountCents int64, currency string) (string, error) {
	var res orderResponse
	_, err := c.post(ctx, "register_order", orderPath, map[string]interface{}{
		"auth_token":        token,
		"delivery_needed":   false,
		"amount_cents":      amountCents,
		"currency":          currency,
		"merchant_order_id": merchantOrderID,
		"items":             []interface{}{},
	}, &res)
	if err != nil {
		return "", err
	}
	if res.ID.String() == "" {
		return "", &Error{Kind: KindUnknown, Op: "register_order", Err: fmt.Errorf("missing order id")}
	}
	return res.ID.String(), nil
}

func (c *Client) requestPaymentKey(ctx context.Context, token, orderID string, amountCents int64, currency string, billing BillingData) (string, json.RawMessage, error) {
	billing.fillDefaults()

	var res paymentKeyResponse
	raw, err := c.post(ctx, "payment_key", paymentKeyPath, map[string]interface{}{
		"auth_token":     token,
		"amount_cents":   amountCents,
		"expiration":     3600,
		"order_id":       orderID,
		"billing_data":   billing,
		"currency":       currency,
		"integration_id": c.integrationID,
	}, &res)
	if err != nil {
		return "", nil, err
	}
	if res.Token == "" {
		return "", nil, &Error{Kind: KindUnknown, Op: "payment_key", Err: fmt.Errorf("empty payment key")}
	}
	return res.Token, raw, nil
}

// post sends a JSON request and decodes the response into out, returning
// the raw body for audit storage. Numeric fields decode via json.Number.
func (c *Client) post(ctx context.Context, op, path string, body interface{}, out interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classify(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Kind: KindUnknown,
			Op:   op,
			Err:  fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, truncate(raw, 256)),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
