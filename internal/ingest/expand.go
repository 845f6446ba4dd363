package ingest

import (
	"maps"

	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
)

// Expand returns the records rec stands for. Checkout sessions are replaced by
// the subscription and payment intent they created, carrying the session's
// metadata and customer where the child lacks them. Other kinds pass through.
func Expand(rec gateway.Record) []gateway.Record {
	if rec.Kind != gateway.KindCheckoutSession {
		return []gateway.Record{rec}
	}

	var out []gateway.Record

	for _, child := range []*gateway.Record{rec.Subscription, rec.PaymentIntent} {
		if child == nil || child.ID == "" {
			continue
		}

		out = append(out, inherit(*child, rec))
	}

	return out
}

func inherit(child, session gateway.Record) gateway.Record {
	merged := make(map[string]string, len(child.Metadata)+len(session.Metadata))
	maps.Copy(merged, session.Metadata)
	maps.Copy(merged, child.Metadata)
	child.Metadata = merged

	if child.CustomerID == "" {
		child.CustomerID = session.CustomerID
	}

	if child.Currency == "" {
		child.Currency = session.Currency
	}

	if child.CreatedAt.IsZero() {
		child.CreatedAt = session.CreatedAt
	}

	// Unexpanded children carry only an id.
	if child.Status == "" && session.Status == "complete" {
		switch child.Kind {
		case gateway.KindSubscription:
			child.Status = "active"
		case gateway.KindPaymentIntent:
			if session.PaymentStatus == "paid" {
				child.Status = "succeeded"
			}
		}
	}

	if child.Kind == gateway.KindPaymentIntent && child.Amount == 0 {
		child.Amount = session.Amount
	}

	return child
}
