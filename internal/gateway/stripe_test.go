package gateway_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
)

func collect(t *testing.T, it gateway.Iterator) []gateway.Record {
	t.Helper()

	var out []gateway.Record
	for it.Next() {
		out = append(out, it.Record())
	}

	return out
}

func TestStripe_ListSubscriptionsFollowsPagination(t *testing.T) {
	var calls []url.Values

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Query())

		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("starting_after") == "" {
			fmt.Fprint(w, `{"object":"list","url":"/v1/subscriptions","has_more":true,"data":[
				{"id":"sub_2","object":"subscription","created":1700000200,"status":"active","customer":"cus_1",
				 "items":{"object":"list","data":[{"id":"si_1","quantity":2,"price":{"id":"price_1","unit_amount":2500,"currency":"eur"}}]}}
			]}`)

			return
		}

		fmt.Fprint(w, `{"object":"list","url":"/v1/subscriptions","has_more":false,"data":[
			{"id":"sub_1","object":"subscription","created":1700000100,"status":"past_due","customer":"cus_2","metadata":{"playerId":"p1"}}
		]}`)
	}))
	defer ts.Close()

	client := gateway.NewStripe("sk_test_123", gateway.WithURL(ts.URL), gateway.WithPageSize(1))

	it := client.List(context.Background(), gateway.KindSubscription, gateway.ListParams{
		Since: time.Unix(1700000000, 0),
	})
	records := collect(t, it)

	require.NoError(t, it.Err())
	require.Len(t, records, 2)
	require.Len(t, calls, 2)

	assert.Equal(t, "all", calls[0].Get("status"))
	assert.Equal(t, "1700000000", calls[0].Get("created[gte]"))
	assert.Equal(t, "1", calls[0].Get("limit"))
	assert.Equal(t, "sub_2", calls[1].Get("starting_after"))

	assert.Equal(t, "sub_2", records[0].ID)
	assert.Equal(t, int64(5000), records[0].Amount)
	assert.Equal(t, "EUR", records[0].Currency)
	assert.Equal(t, "cus_1", records[0].CustomerID)
	assert.Equal(t, "past_due", records[1].Status)
	assert.Equal(t, "p1", records[1].Metadata["playerId"])
}

func TestStripe_ListStopsAtOlderCheckoutSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","url":"/v1/checkout/sessions","has_more":false,"data":[
			{"id":"cs_new","object":"checkout.session","created":1700000500,"status":"complete","payment_status":"paid",
			 "subscription":{"id":"sub_9","object":"subscription","created":1700000500,"status":"active"}},
			{"id":"cs_old","object":"checkout.session","created":1600000000,"status":"complete","payment_status":"paid"}
		]}`)
	}))
	defer ts.Close()

	client := gateway.NewStripe("sk_test_123", gateway.WithURL(ts.URL))

	it := client.List(context.Background(), gateway.KindCheckoutSession, gateway.ListParams{
		Since:  time.Unix(1700000000, 0),
		Expand: gateway.DefaultExpand(gateway.KindCheckoutSession),
	})
	records := collect(t, it)

	require.NoError(t, it.Err())
	require.Len(t, records, 1)
	assert.Equal(t, "cs_new", records[0].ID)
	require.NotNil(t, records[0].Subscription)
	assert.Equal(t, "sub_9", records[0].Subscription.ID)
	assert.Nil(t, records[0].PaymentIntent)
}

func TestStripe_PageErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"type":"api_error","message":"boom"}}`)
	}))
	defer ts.Close()

	client := gateway.NewStripe("sk_test_123", gateway.WithURL(ts.URL))

	it := client.List(context.Background(), gateway.KindInvoice, gateway.ListParams{})

	assert.False(t, it.Next())
	assert.Error(t, it.Err())
}

func TestStripe_UnsupportedKind(t *testing.T) {
	it := gateway.NewStripe("sk_test_123").List(context.Background(), gateway.KindCharge, gateway.ListParams{})

	assert.False(t, it.Next())
	assert.Error(t, it.Err())
}

func TestFromPaymentIntent(t *testing.T) {
	pi := &stripe.PaymentIntent{
		ID:           "pi_1",
		Amount:       12000,
		Currency:     stripe.CurrencyEUR,
		Customer:     &stripe.Customer{ID: "cus_1"},
		Invoice:      &stripe.Invoice{ID: "in_1"},
		LatestCharge: &stripe.Charge{ID: "ch_1", AmountRefunded: 12000},
		Metadata:     map[string]string{"playerType": "upfront"},
		Status:       stripe.PaymentIntentStatusSucceeded,
		Created:      1700000000,
	}

	rec := gateway.FromPaymentIntent(pi)

	assert.Equal(t, gateway.KindPaymentIntent, rec.Kind)
	assert.Equal(t, "in_1", rec.ParentID)
	assert.Equal(t, "cus_1", rec.CustomerID)
	assert.Equal(t, int64(12000), rec.AmountRefunded)
	assert.Equal(t, "EUR", rec.Currency)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), rec.CreatedAt)
}

func TestFromInvoice(t *testing.T) {
	inv := &stripe.Invoice{
		ID:           "in_1",
		AmountDue:    4500,
		AmountPaid:   4000,
		Status:       stripe.InvoiceStatusPaid,
		Subscription: &stripe.Subscription{ID: "sub_1"},
		PeriodStart:  1700000000,
		PeriodEnd:    1702592000,
	}

	rec := gateway.FromInvoice(inv)

	assert.Equal(t, "sub_1", rec.ParentID)
	assert.Equal(t, int64(4000), rec.Amount)
	require.NotNil(t, rec.CurrentPeriodEnd)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), *rec.CurrentPeriodEnd)
	assert.Nil(t, rec.TrialStart)
}

func TestFromCharge(t *testing.T) {
	rec := gateway.FromCharge(&stripe.Charge{
		ID:             "ch_1",
		Amount:         3000,
		AmountRefunded: 3000,
		Refunded:       true,
		Status:         stripe.ChargeStatusSucceeded,
		PaymentIntent:  &stripe.PaymentIntent{ID: "pi_1"},
	})

	assert.Equal(t, gateway.KindCharge, rec.Kind)
	assert.Equal(t, "refunded", rec.Status)
	assert.Equal(t, "pi_1", rec.ParentID)
}
