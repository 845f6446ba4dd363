package member

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

var ErrNotFound = errors.New("member not found")

// Member is a player registered under an account. The external id fields cache
// the gateway ids of the member's most relevant payments.
type Member struct {
	ID                        uuid.UUID
	AccountID                 uuid.UUID
	ExternalSubscriptionID    string
	ExternalUpfrontPaymentID  string
	ExternalRegistrationFeeID string
	CreatedAt                 time.Time
}

// Account is the billing owner of one or more members.
type Account struct {
	ID                uuid.UUID
	GatewayCustomerID string
	CreatedAt         time.Time
}

// Field names a cached external id column on a member.
type Field string

const (
	FieldSubscription    Field = "external_subscription_id"
	FieldUpfrontPayment  Field = "external_upfront_payment_id"
	FieldRegistrationFee Field = "external_registration_fee_id"
)

var Fields = []Field{FieldSubscription, FieldUpfrontPayment, FieldRegistrationFee}

var fieldTypes = map[Field]ledger.Type{
	FieldSubscription:    ledger.TypeSubscription,
	FieldUpfrontPayment:  ledger.TypeUpfrontPayment,
	FieldRegistrationFee: ledger.TypeRegistrationFee,
}

// FieldForType returns the cached field that holds ids of records of type t.
func FieldForType(t ledger.Type) (Field, bool) {
	for f, ft := range fieldTypes {
		if ft == t {
			return f, true
		}
	}

	return "", false
}

// Type returns the ledger record type cached in f.
func (f Field) Type() ledger.Type {
	return fieldTypes[f]
}

// Valid reports whether f is a known column. Store queries interpolate it.
func (f Field) Valid() bool {
	_, ok := fieldTypes[f]
	return ok
}

// Get returns the cached value of f.
func (m *Member) Get(f Field) string {
	switch f {
	case FieldSubscription:
		return m.ExternalSubscriptionID
	case FieldUpfrontPayment:
		return m.ExternalUpfrontPaymentID
	case FieldRegistrationFee:
		return m.ExternalRegistrationFeeID
	}

	return ""
}

// Missing returns the cached fields that are still empty, in Fields order.
func (m *Member) Missing() []Field {
	var out []Field

	for _, f := range Fields {
		if m.Get(f) == "" {
			out = append(out, f)
		}
	}

	return out
}
