package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

const defaultPageSize = 100

// Stripe lists records from the Stripe API.
type Stripe struct {
	api      *client.API
	pageSize int64
}

type StripeOption func(*stripeOptions)

type stripeOptions struct {
	url      string
	pageSize int64
}

// WithURL points the client at a different API host, e.g. stripe-mock.
func WithURL(url string) StripeOption {
	return func(o *stripeOptions) { o.url = url }
}

// WithPageSize sets the page size requested per list call (1-100).
func WithPageSize(n int) StripeOption {
	return func(o *stripeOptions) {
		if n > 0 && n <= 100 {
			o.pageSize = int64(n)
		}
	}
}

func NewStripe(secretKey string, opts ...StripeOption) *Stripe {
	o := stripeOptions{pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if o.url != "" {
		cfg.URL = stripe.String(o.url)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	return &Stripe{
		api:      client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
		pageSize: o.pageSize,
	}
}

func (s *Stripe) List(ctx context.Context, kind Kind, params ListParams) Iterator {
	lp := stripe.ListParams{Context: ctx, Limit: stripe.Int64(s.pageSize)}
	for _, e := range params.Expand {
		lp.AddExpand(e)
	}

	var created *stripe.RangeQueryParams
	if !params.Since.IsZero() {
		created = &stripe.RangeQueryParams{GreaterThanOrEqual: params.Since.Unix()}
	}

	switch kind {
	case KindSubscription:
		it := s.api.Subscriptions.List(&stripe.SubscriptionListParams{
			ListParams:   lp,
			CreatedRange: created,
			Status:       stripe.String("all"),
		})

		return newStripeIter(it.Iter, params.Since, func(v any) Record {
			return FromSubscription(v.(*stripe.Subscription))
		})
	case KindPaymentIntent:
		it := s.api.PaymentIntents.List(&stripe.PaymentIntentListParams{ListParams: lp, CreatedRange: created})

		return newStripeIter(it.Iter, params.Since, func(v any) Record {
			return FromPaymentIntent(v.(*stripe.PaymentIntent))
		})
	case KindInvoice:
		it := s.api.Invoices.List(&stripe.InvoiceListParams{ListParams: lp, CreatedRange: created})

		return newStripeIter(it.Iter, params.Since, func(v any) Record {
			return FromInvoice(v.(*stripe.Invoice))
		})
	case KindCheckoutSession:
		// Sessions have no created filter; the iterator stops at the first older one.
		it := s.api.CheckoutSessions.List(&stripe.CheckoutSessionListParams{ListParams: lp})

		return newStripeIter(it.Iter, params.Since, func(v any) Record {
			return FromCheckoutSession(v.(*stripe.CheckoutSession))
		})
	default:
		return &errIter{err: fmt.Errorf("listing %s: unsupported kind", kind)}
	}
}

// stripeIter adapts a Stripe list iterator. Stripe lists newest first, so the
// first record older than since ends the walk.
type stripeIter struct {
	iter    *stripe.Iter
	since   time.Time
	convert func(any) Record
	current Record
	done    bool
}

func newStripeIter(iter *stripe.Iter, since time.Time, convert func(any) Record) *stripeIter {
	return &stripeIter{iter: iter, since: since, convert: convert}
}

func (i *stripeIter) Next() bool {
	if i.done {
		return false
	}

	if !i.iter.Next() {
		i.done = true
		return false
	}

	rec := i.convert(i.iter.Current())
	if !i.since.IsZero() && rec.CreatedAt.Before(i.since) {
		i.done = true
		return false
	}

	i.current = rec

	return true
}

func (i *stripeIter) Record() Record { return i.current }
func (i *stripeIter) Err() error     { return i.iter.Err() }

type errIter struct {
	err error
}

func (i *errIter) Next() bool     { return false }
func (i *errIter) Record() Record { return Record{} }
func (i *errIter) Err() error     { return i.err }

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}

	return c.ID
}

func currency(c stripe.Currency) string {
	return strings.ToUpper(string(c))
}

func FromSubscription(s *stripe.Subscription) Record {
	var amount int64

	var cur string

	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item.Price == nil {
				continue
			}

			qty := item.Quantity
			if qty == 0 {
				qty = 1
			}

			amount += item.Price.UnitAmount * qty

			if cur == "" {
				cur = currency(item.Price.Currency)
			}
		}
	}

	if s.Currency != "" {
		cur = currency(s.Currency)
	}

	return Record{
		Kind:               KindSubscription,
		ID:                 s.ID,
		CustomerID:         customerID(s.Customer),
		Status:             string(s.Status),
		Amount:             amount,
		Currency:           cur,
		Metadata:           s.Metadata,
		CreatedAt:          createdTime(s.Created),
		TrialStart:         unixTime(s.TrialStart),
		TrialEnd:           unixTime(s.TrialEnd),
		CurrentPeriodStart: unixTime(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(s.CurrentPeriodEnd),
		CancelAt:           unixTime(s.CancelAt),
		CanceledAt:         unixTime(s.CanceledAt),
	}
}

func FromPaymentIntent(pi *stripe.PaymentIntent) Record {
	rec := Record{
		Kind:       KindPaymentIntent,
		ID:         pi.ID,
		CustomerID: customerID(pi.Customer),
		Status:     string(pi.Status),
		Amount:     pi.Amount,
		Currency:   currency(pi.Currency),
		Metadata:   pi.Metadata,
		CreatedAt:  createdTime(pi.Created),
		CanceledAt: unixTime(pi.CanceledAt),
	}

	if pi.Invoice != nil {
		rec.ParentID = pi.Invoice.ID
	}

	if pi.LatestCharge != nil {
		rec.AmountRefunded = pi.LatestCharge.AmountRefunded
	}

	return rec
}

func FromInvoice(inv *stripe.Invoice) Record {
	amount := inv.AmountDue
	if inv.Status == stripe.InvoiceStatusPaid {
		amount = inv.AmountPaid
	}

	rec := Record{
		Kind:               KindInvoice,
		ID:                 inv.ID,
		CustomerID:         customerID(inv.Customer),
		Status:             string(inv.Status),
		Amount:             amount,
		Currency:           currency(inv.Currency),
		Metadata:           inv.Metadata,
		CreatedAt:          createdTime(inv.Created),
		CurrentPeriodStart: unixTime(inv.PeriodStart),
		CurrentPeriodEnd:   unixTime(inv.PeriodEnd),
	}

	if inv.Subscription != nil {
		rec.ParentID = inv.Subscription.ID
	}

	return rec
}

func FromCheckoutSession(cs *stripe.CheckoutSession) Record {
	rec := Record{
		Kind:          KindCheckoutSession,
		ID:            cs.ID,
		CustomerID:    customerID(cs.Customer),
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		Amount:        cs.AmountTotal,
		Currency:      currency(cs.Currency),
		Metadata:      cs.Metadata,
		CreatedAt:     createdTime(cs.Created),
	}

	if cs.Subscription != nil && cs.Subscription.ID != "" {
		sub := FromSubscription(cs.Subscription)
		rec.Subscription = &sub
	}

	if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
		pi := FromPaymentIntent(cs.PaymentIntent)
		rec.PaymentIntent = &pi
	}

	return rec
}

func FromCharge(ch *stripe.Charge) Record {
	rec := Record{
		Kind:           KindCharge,
		ID:             ch.ID,
		CustomerID:     customerID(ch.Customer),
		Status:         string(ch.Status),
		Amount:         ch.Amount,
		AmountRefunded: ch.AmountRefunded,
		Currency:       currency(ch.Currency),
		Metadata:       ch.Metadata,
		CreatedAt:      createdTime(ch.Created),
	}

	if ch.Refunded {
		rec.Status = "refunded"
	}

	if ch.PaymentIntent != nil {
		rec.ParentID = ch.PaymentIntent.ID
	}

	return rec
}
