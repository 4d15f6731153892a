package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStubCheckoutAndEventRoundTrip(t *testing.T) {
	g := NewStubGateway("secret")
	sess, err := g.CreateCheckout(context.Background(), CheckoutRequest{SuccessURL: "https://app.test/ok"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sess.CorrelationID, "stub_") || sess.RedirectURL != "https://app.test/ok" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	payload, sig := g.CompletedEvent(sess.CorrelationID, map[string]string{"payment_type": "chat"})
	ev, err := g.ParseEvent(payload, sig)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventCheckoutCompleted || ev.CorrelationID != sess.CorrelationID || !ev.Paid {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestStubRejectsTamperedPayload(t *testing.T) {
	g := NewStubGateway("secret")
	payload, sig := g.CompletedEvent("stub_1", nil)
	tampered := []byte(strings.Replace(string(payload), "stub_1", "stub_2", 1))

	if _, err := g.ParseEvent(tampered, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	other := NewStubGateway("other")
	if _, err := other.ParseEvent(payload, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestStubMalformed(t *testing.T) {
	g := NewStubGateway("secret")
	payload := []byte(`{"type":"checkout.session.completed"}`)
	if _, err := g.ParseEvent(payload, g.Sign(payload)); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("err = %v, want ErrMalformedEvent", err)
	}
	junk := []byte("not json")
	if _, err := g.ParseEvent(junk, g.Sign(junk)); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("err = %v, want ErrMalformedEvent", err)
	}
}
