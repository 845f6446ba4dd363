// Package classifier maps raw gateway records onto ledger types and statuses.
package classifier

import (
	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

// Metadata keys consulted for the payment purpose, in priority order.
var purposeKeys = []string{"playerType", "type"}

// purposeTypes is the complete purpose table. Anything not listed is a monthly payment.
var purposeTypes = map[string]ledger.Type{
	"upfront":      ledger.TypeUpfrontPayment,
	"subscription": ledger.TypeRegistrationFee,
}

var subscriptionStatuses = map[string]ledger.Status{
	"active":             ledger.StatusActive,
	"trialing":           ledger.StatusTrialing,
	"past_due":           ledger.StatusPastDue,
	"unpaid":             ledger.StatusPastDue,
	"canceled":           ledger.StatusCanceled,
	"incomplete":         ledger.StatusIncomplete,
	"incomplete_expired": ledger.StatusCanceled,
	"paused":             ledger.StatusPending,
}

var paymentIntentStatuses = map[string]ledger.Status{
	"succeeded":               ledger.StatusSucceeded,
	"processing":              ledger.StatusPending,
	"requires_action":         ledger.StatusPending,
	"requires_capture":        ledger.StatusPending,
	"requires_confirmation":   ledger.StatusPending,
	"requires_payment_method": ledger.StatusFailed,
	"canceled":                ledger.StatusCanceled,
}

var invoiceStatuses = map[string]ledger.Status{
	"paid":          ledger.StatusSucceeded,
	"open":          ledger.StatusPending,
	"draft":         ledger.StatusPending,
	"uncollectible": ledger.StatusFailed,
	"void":          ledger.StatusCanceled,
}

var chargeStatuses = map[string]ledger.Status{
	"succeeded": ledger.StatusSucceeded,
	"pending":   ledger.StatusPending,
	"failed":    ledger.StatusFailed,
	"refunded":  ledger.StatusRefunded,
}

// Classify returns the ledger type and status of rec. It never fails: unknown
// purposes default to monthly payments and unknown statuses to a pending state.
func Classify(rec gateway.Record) (ledger.Type, ledger.Status) {
	switch rec.Kind {
	case gateway.KindSubscription:
		return ledger.TypeSubscription, lookup(subscriptionStatuses, rec.Status, ledger.StatusIncomplete)
	case gateway.KindCharge:
		return ledger.TypeRefund, lookup(chargeStatuses, rec.Status, ledger.StatusPending)
	case gateway.KindInvoice:
		status := lookup(invoiceStatuses, rec.Status, ledger.StatusPending)
		if rec.ParentID != "" {
			return ledger.TypeMonthlyPayment, status
		}

		return Purpose(rec.Metadata), status
	case gateway.KindCheckoutSession:
		return Purpose(rec.Metadata), sessionStatus(rec)
	default:
		status := lookup(paymentIntentStatuses, rec.Status, ledger.StatusPending)
		if fullyRefunded(rec) {
			status = ledger.StatusRefunded
		}

		return Purpose(rec.Metadata), status
	}
}

// Purpose resolves the payment type from metadata.
func Purpose(metadata map[string]string) ledger.Type {
	for _, key := range purposeKeys {
		v, ok := metadata[key]
		if !ok || v == "" {
			continue
		}

		if t, ok := purposeTypes[v]; ok {
			return t
		}

		return ledger.TypeMonthlyPayment
	}

	return ledger.TypeMonthlyPayment
}

func sessionStatus(rec gateway.Record) ledger.Status {
	switch {
	case rec.Status == "expired":
		return ledger.StatusCanceled
	case rec.Status == "complete" && rec.PaymentStatus != "unpaid":
		return ledger.StatusSucceeded
	default:
		return ledger.StatusPending
	}
}

func fullyRefunded(rec gateway.Record) bool {
	return rec.Amount > 0 && rec.AmountRefunded >= rec.Amount
}

func lookup(table map[string]ledger.Status, status string, fallback ledger.Status) ledger.Status {
	if s, ok := table[status]; ok {
		return s
	}

	return fallback
}
