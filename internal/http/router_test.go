package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	ledgerHttp "github.com/MrJamesThe3rd/clubledger/internal/http"
	ledgerHandler "github.com/MrJamesThe3rd/clubledger/internal/http/ledger"
	webhookHandler "github.com/MrJamesThe3rd/clubledger/internal/http/webhook"
	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger/ledgertest"
	"github.com/MrJamesThe3rd/clubledger/internal/linker"
	"github.com/MrJamesThe3rd/clubledger/internal/metrics"
	"github.com/MrJamesThe3rd/clubledger/internal/webhook"
)

var memberM1 = uuid.MustParse("10000000-0000-0000-0000-000000000001")

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	ctrl := gomock.NewController(t)

	repo := ledgertest.New()
	created := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	repo.Seed(
		&ledger.Record{ExternalID: "sub_1", Type: ledger.TypeSubscription, Status: ledger.StatusActive, MemberID: &memberM1, GatewayCreatedAt: &created},
		&ledger.Record{ExternalID: "pi_1", Type: ledger.TypeUpfrontPayment, Status: ledger.StatusSucceeded, Amount: 2000, Currency: "EUR", GatewayCreatedAt: &created},
	)

	ledgerSvc := ledger.NewService(repo)
	reg := prometheus.NewRegistry()
	m := metrics.MustNew(reg)

	webhookSvc := webhook.NewService(
		webhook.NewMockRepository(ctrl),
		ingest.New(ledgerSvc, linker.New()),
		"whsec_test",
		webhook.WithMetrics(m),
	)

	return ledgerHttp.New(
		ledgerHandler.NewHandler(ledgerSvc),
		webhookHandler.NewHandler(webhookSvc),
		ledgerHttp.Options{
			AllowedOrigins: []string{"*"},
			Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		},
	)
}

func TestLedgerList(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []string
	}{
		{name: "All", query: "", wantCode: http.StatusOK, wantIDs: []string{"sub_1", "pi_1"}},
		{name: "Orphans", query: "?orphans=true", wantCode: http.StatusOK, wantIDs: []string{"pi_1"}},
		{name: "ByType", query: "?type=subscription", wantCode: http.StatusOK, wantIDs: []string{"sub_1"}},
		{name: "ByMember", query: "?member_id=" + memberM1.String(), wantCode: http.StatusOK, wantIDs: []string{"sub_1"}},
		{name: "Since", query: "?since=2024-05-01", wantCode: http.StatusOK, wantIDs: []string{}},
		{name: "UnknownType", query: "?type=donation", wantCode: http.StatusBadRequest},
		{name: "BadMember", query: "?member_id=nope", wantCode: http.StatusBadRequest},
		{name: "BadSince", query: "?since=last-week", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/"+tt.query, nil))

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode != http.StatusOK {
				return
			}

			var body []struct {
				ExternalID string `json:"external_id"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

			ids := make([]string, len(body))
			for i, b := range body {
				ids[i] = b.ExternalID
			}

			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestLedgerGet(t *testing.T) {
	router := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/pi_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "upfront_payment", body["type"])
	assert.Equal(t, true, body["orphaned"])
	assert.Equal(t, map[string]any{}, body["metadata"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/pi_missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=00")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clubledger_webhook_events_total{outcome="invalid",type="unknown"} 1`)
}
