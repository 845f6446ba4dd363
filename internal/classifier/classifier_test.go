package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/clubledger/internal/classifier"
	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		rec        gateway.Record
		wantType   ledger.Type
		wantStatus ledger.Status
	}{
		{
			name:       "SubscriptionTrialing",
			rec:        gateway.Record{Kind: gateway.KindSubscription, Status: "trialing"},
			wantType:   ledger.TypeSubscription,
			wantStatus: ledger.StatusTrialing,
		},
		{
			name:       "SubscriptionUnpaidIsPastDue",
			rec:        gateway.Record{Kind: gateway.KindSubscription, Status: "unpaid"},
			wantType:   ledger.TypeSubscription,
			wantStatus: ledger.StatusPastDue,
		},
		{
			name:       "SubscriptionIncompleteExpiredIsCanceled",
			rec:        gateway.Record{Kind: gateway.KindSubscription, Status: "incomplete_expired"},
			wantType:   ledger.TypeSubscription,
			wantStatus: ledger.StatusCanceled,
		},
		{
			name:       "SubscriptionUnknownStatus",
			rec:        gateway.Record{Kind: gateway.KindSubscription, Status: ""},
			wantType:   ledger.TypeSubscription,
			wantStatus: ledger.StatusIncomplete,
		},
		{
			name: "UpfrontPaymentByPlayerType",
			rec: gateway.Record{
				Kind: gateway.KindPaymentIntent, Status: "succeeded",
				Metadata: map[string]string{"playerType": "upfront"},
			},
			wantType:   ledger.TypeUpfrontPayment,
			wantStatus: ledger.StatusSucceeded,
		},
		{
			name: "RegistrationFeeByType",
			rec: gateway.Record{
				Kind: gateway.KindPaymentIntent, Status: "processing",
				Metadata: map[string]string{"type": "subscription"},
			},
			wantType:   ledger.TypeRegistrationFee,
			wantStatus: ledger.StatusPending,
		},
		{
			name: "PlayerTypeTakesPriorityOverType",
			rec: gateway.Record{
				Kind: gateway.KindPaymentIntent, Status: "succeeded",
				Metadata: map[string]string{"playerType": "upfront", "type": "subscription"},
			},
			wantType:   ledger.TypeUpfrontPayment,
			wantStatus: ledger.StatusSucceeded,
		},
		{
			name: "UnknownPurposeDefaultsToMonthly",
			rec: gateway.Record{
				Kind: gateway.KindPaymentIntent, Status: "requires_payment_method",
				Metadata: map[string]string{"playerType": "goalkeeper"},
			},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusFailed,
		},
		{
			name:       "NoMetadataDefaultsToMonthly",
			rec:        gateway.Record{Kind: gateway.KindPaymentIntent, Status: "canceled"},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusCanceled,
		},
		{
			name: "FullyRefundedPayment",
			rec: gateway.Record{
				Kind: gateway.KindPaymentIntent, Status: "succeeded",
				Amount: 5000, AmountRefunded: 5000,
			},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusRefunded,
		},
		{
			name: "PartiallyRefundedPaymentStaysSucceeded",
			rec: gateway.Record{
				Kind: gateway.KindPaymentIntent, Status: "succeeded",
				Amount: 5000, AmountRefunded: 1000,
			},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusSucceeded,
		},
		{
			name: "SubscriptionInvoiceAlwaysMonthly",
			rec: gateway.Record{
				Kind: gateway.KindInvoice, Status: "paid", ParentID: "sub_1",
				Metadata: map[string]string{"playerType": "upfront"},
			},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusSucceeded,
		},
		{
			name: "StandaloneInvoiceUsesMetadata",
			rec: gateway.Record{
				Kind: gateway.KindInvoice, Status: "uncollectible",
				Metadata: map[string]string{"type": "upfront"},
			},
			wantType:   ledger.TypeUpfrontPayment,
			wantStatus: ledger.StatusFailed,
		},
		{
			name:       "VoidInvoice",
			rec:        gateway.Record{Kind: gateway.KindInvoice, Status: "void", ParentID: "sub_1"},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusCanceled,
		},
		{
			name:       "RefundedCharge",
			rec:        gateway.Record{Kind: gateway.KindCharge, Status: "refunded"},
			wantType:   ledger.TypeRefund,
			wantStatus: ledger.StatusRefunded,
		},
		{
			name:       "CompletedCheckoutSession",
			rec:        gateway.Record{Kind: gateway.KindCheckoutSession, Status: "complete", PaymentStatus: "paid"},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusSucceeded,
		},
		{
			name:       "ExpiredCheckoutSession",
			rec:        gateway.Record{Kind: gateway.KindCheckoutSession, Status: "expired"},
			wantType:   ledger.TypeMonthlyPayment,
			wantStatus: ledger.StatusCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotStatus := classifier.Classify(tt.rec)

			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantStatus, gotStatus)
		})
	}
}

func TestClassify_StatusAlwaysInVocabulary(t *testing.T) {
	statuses := []string{"", "weird", "active", "paid", "succeeded", "refunded", "open"}

	kinds := append([]gateway.Kind{gateway.KindCharge}, gateway.SyncKinds...)

	for _, kind := range kinds {
		for _, s := range statuses {
			typ, status := classifier.Classify(gateway.Record{Kind: kind, Status: s})

			assert.Contains(t, ledger.Types, typ)
			assert.Contains(t, ledger.Statuses, status)
		}
	}
}
