package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorCode is the stable code surfaced to clients for any gateway-side
// failure; the client treats it as retryable.
const ErrorCode = "PAYMENT_GATEWAY_ERROR"

// Advisory failure kinds. These classify what went wrong for recovery UI
// only; they are never authoritative gateway codes.
const (
	KindNetwork           = "network"
	KindTimeout           = "timeout"
	KindCardDeclined      = "card_declined"
	KindInsufficientFunds = "insufficient_funds"
	KindUnknown           = "unknown"
)

// Error is a classified failure talking to the payment gateway.
type Error struct {
	Kind string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps an outbound-call error with an advisory kind.
func classify(op string, err error) *Error {
	kind := KindUnknown

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.As(err, &netErr):
		kind = KindNetwork
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

// ClassifyDecline maps a failed transaction's detail block onto an
// advisory kind for the recovery UI.
func ClassifyDecline(data TransactionData) string {
	msg := strings.ToLower(data.Message)
	switch {
	case strings.Contains(msg, "insufficient"):
		return KindInsufficientFunds
	case strings.Contains(msg, "declined") || data.TxnResponseCode == "DECLINED":
		return KindCardDeclined
	default:
		return KindUnknown
	}
}
