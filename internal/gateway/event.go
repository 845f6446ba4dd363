package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// Event is a verified webhook notification.
// Record is nil for event types that carry no ledger-relevant object.
type Event struct {
	ID     string
	Type   string
	Record *Record
}

// Completed reports whether the event closes a checkout. Fulfilment of such
// sessions happens outside the ledger.
func (e Event) Completed() bool {
	return e.Type == "checkout.session.completed"
}

// ParseEvent verifies the Stripe-Signature header of payload and decodes the
// envelope's data.object into a Record.
func ParseEvent(payload []byte, signature, secret string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("verifying webhook signature: %w", err)
	}

	out := Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}

	rec, err := decodeObject(out.Type, evt.Data.Raw)
	if err != nil {
		return Event{}, fmt.Errorf("decoding %s object: %w", out.Type, err)
	}

	out.Record = rec

	return out, nil
}

func decodeObject(eventType string, raw json.RawMessage) (*Record, error) {
	var rec Record

	switch {
	case strings.HasPrefix(eventType, "customer.subscription."):
		var s stripe.Subscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}

		rec = FromSubscription(&s)
	case strings.HasPrefix(eventType, "payment_intent."):
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, err
		}

		rec = FromPaymentIntent(&pi)
	case strings.HasPrefix(eventType, "invoice."):
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, err
		}

		rec = FromInvoice(&inv)
	case eventType == "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(raw, &cs); err != nil {
			return nil, err
		}

		rec = FromCheckoutSession(&cs)
	case eventType == "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(raw, &ch); err != nil {
			return nil, err
		}

		rec = FromCharge(&ch)
	default:
		return nil, nil
	}

	return &rec, nil
}
