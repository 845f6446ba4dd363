package gateway

import (
	"context"
	"time"
)

// Kind is the gateway object family a record was read from.
type Kind string

const (
	KindSubscription    Kind = "subscription"
	KindPaymentIntent   Kind = "payment_intent"
	KindInvoice         Kind = "invoice"
	KindCheckoutSession Kind = "checkout_session"
	KindCharge          Kind = "charge" // webhook only
)

// SyncKinds are the kinds that can be listed from the gateway.
var SyncKinds = []Kind{KindSubscription, KindPaymentIntent, KindInvoice, KindCheckoutSession}

// Record is a gateway object normalized to the fields the ledger needs.
type Record struct {
	Kind           Kind
	ID             string
	ParentID       string // owning subscription or invoice
	CustomerID     string
	Status         string // gateway vocabulary
	PaymentStatus  string // checkout sessions only
	Amount         int64
	AmountRefunded int64
	Currency       string
	Metadata       map[string]string
	CreatedAt      time.Time

	TrialStart         *time.Time
	TrialEnd           *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAt           *time.Time
	CanceledAt         *time.Time

	// Expanded objects a checkout session created.
	Subscription  *Record
	PaymentIntent *Record
}

// ListParams bound a listing. Records created before Since are not returned.
type ListParams struct {
	Since  time.Time
	Expand []string
}

// Iterator walks a listing lazily, fetching pages as needed.
// Err reports the error that stopped iteration, if any.
type Iterator interface {
	Next() bool
	Record() Record
	Err() error
}

// Client lists gateway records of one kind. Implementations do not retry.
type Client interface {
	List(ctx context.Context, kind Kind, params ListParams) Iterator
}

// DefaultExpand returns the expansion hints used when listing kind.
func DefaultExpand(kind Kind) []string {
	switch kind {
	case KindPaymentIntent:
		return []string{"data.latest_charge"}
	case KindCheckoutSession:
		return []string{"data.subscription", "data.payment_intent", "data.payment_intent.latest_charge"}
	default:
		return nil
	}
}

// createdTime converts a creation timestamp. Unexpanded objects decode with
// Created == 0, which maps to the zero time rather than the Unix epoch.
func createdTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}

	return time.Unix(sec, 0).UTC()
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}

	t := time.Unix(sec, 0).UTC()

	return &t
}
