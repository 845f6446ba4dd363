package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("ledger record not found")

// Type is the business category of a ledger record.
type Type string

const (
	TypeSubscription    Type = "subscription"
	TypeRegistrationFee Type = "registration_fee"
	TypeUpfrontPayment  Type = "upfront_payment"
	TypeMonthlyPayment  Type = "monthly_payment"
	TypeRefund          Type = "refund"
)

var Types = []Type{
	TypeSubscription,
	TypeRegistrationFee,
	TypeUpfrontPayment,
	TypeMonthlyPayment,
	TypeRefund,
}

// Status is the ledger's own status vocabulary. Gateway statuses are coerced into it.
type Status string

const (
	StatusActive     Status = "active"
	StatusCanceled   Status = "canceled"
	StatusPastDue    Status = "past_due"
	StatusTrialing   Status = "trialing"
	StatusIncomplete Status = "incomplete"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusPending    Status = "pending"
	StatusRefunded   Status = "refunded"
)

var Statuses = []Status{
	StatusActive,
	StatusCanceled,
	StatusPastDue,
	StatusTrialing,
	StatusIncomplete,
	StatusSucceeded,
	StatusFailed,
	StatusPending,
	StatusRefunded,
}

// Record is the local mirror of one gateway object.
// ExternalID is unique across the ledger and is the idempotency key for ingestion.
type Record struct {
	ID               uuid.UUID
	ExternalID       string `validate:"required,max=255"`
	ExternalParentID string `validate:"max=255"`
	MemberID         *uuid.UUID
	AccountID        *uuid.UUID
	Type             Type   `validate:"required,ledger_type"`
	Status           Status `validate:"required,ledger_status"`
	Amount           int64  `validate:"gte=0"` // Minor units
	AmountRefunded   int64  `validate:"gte=0"` // Minor units
	Currency         string `validate:"omitempty,len=3,uppercase"`

	TrialStart         *time.Time
	TrialEnd           *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAt           *time.Time
	CanceledAt         *time.Time
	GatewayCreatedAt   *time.Time
	ProcessedAt        time.Time

	Metadata   Metadata
	LastError  string
	RetryCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Linked reports whether the record has been resolved to a member.
func (r *Record) Linked() bool {
	return r.MemberID != nil
}

// MetadataRow is the unparsed metadata column of a record, as stored.
type MetadataRow struct {
	ID         uuid.UUID
	ExternalID string
	Raw        *string
}
