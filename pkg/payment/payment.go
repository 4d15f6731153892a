package payment

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the only event type that can settle a payment.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrInvalidSignature = errors.New("payment: invalid event signature")
	ErrMalformedEvent   = errors.New("payment: malformed event payload")
)

type CheckoutRequest struct {
	AmountCents    int64
	Currency       string
	Description    string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string // payment_type plus chat_id or lawyer_id
	IdempotencyKey string
}

type CheckoutSession struct {
	CorrelationID string
	RedirectURL   string
}

// Event is a verified gateway notification, normalised across providers.
type Event struct {
	ID            string
	Type          string
	CorrelationID string
	Paid          bool
	Metadata      map[string]string
}

// Gateway creates hosted checkouts and authenticates their asynchronous confirmations.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseEvent verifies signature against the raw payload before decoding it.
	ParseEvent(payload []byte, signature string) (*Event, error)
	// SignatureHeader is the HTTP header carrying the signature.
	SignatureHeader() string
}
