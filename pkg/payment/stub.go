package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// StubGateway stands in for a real provider on staging: checkouts redirect straight
// to the success URL and events are JSON bodies signed with HMAC-SHA256 (hex).
type StubGateway struct {
	secret string
}

func NewStubGateway(webhookSecret string) *StubGateway {
	return &StubGateway{secret: webhookSecret}
}

func (s *StubGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	return &CheckoutSession{
		CorrelationID: "stub_" + uuid.NewString(),
		RedirectURL:   req.SuccessURL,
	}, nil
}

type stubEvent struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	CorrelationID string            `json:"correlation_id"`
	Paid          bool              `json:"paid"`
	Metadata      map[string]string `json:"metadata"`
}

func (s *StubGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	if !hmac.Equal([]byte(signature), []byte(s.Sign(payload))) {
		return nil, ErrInvalidSignature
	}
	var ev stubEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Type == "" {
		return nil, ErrMalformedEvent
	}
	if ev.Type == EventCheckoutCompleted && ev.CorrelationID == "" {
		return nil, ErrMalformedEvent
	}
	return &Event{
		ID:            ev.ID,
		Type:          ev.Type,
		CorrelationID: ev.CorrelationID,
		Paid:          ev.Paid,
		Metadata:      ev.Metadata,
	}, nil
}

func (s *StubGateway) SignatureHeader() string { return "X-Webhook-Signature" }

// Sign returns the hex HMAC-SHA256 of payload under the webhook secret.
func (s *StubGateway) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// CompletedEvent builds a signed checkout-completed payload, for staging tools and tests.
func (s *StubGateway) CompletedEvent(correlationID string, metadata map[string]string) (payload []byte, signature string) {
	payload, _ = json.Marshal(stubEvent{
		ID:            "evt_" + uuid.NewString(),
		Type:          EventCheckoutCompleted,
		CorrelationID: correlationID,
		Paid:          true,
		Metadata:      metadata,
	})
	return payload, s.Sign(payload)
}
