package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

type recordResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ExternalID         string          `json:"external_id"`
	ExternalParentID   string          `json:"external_parent_id,omitempty"`
	MemberID           *uuid.UUID      `json:"member_id,omitempty"`
	AccountID          *uuid.UUID      `json:"account_id,omitempty"`
	Type               ledger.Type     `json:"type"`
	Status             ledger.Status   `json:"status"`
	Amount             int64           `json:"amount"`
	AmountRefunded     int64           `json:"amount_refunded"`
	Currency           string          `json:"currency,omitempty"`
	TrialStart         *time.Time      `json:"trial_start,omitempty"`
	TrialEnd           *time.Time      `json:"trial_end,omitempty"`
	CurrentPeriodStart *time.Time      `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time      `json:"current_period_end,omitempty"`
	CancelAt           *time.Time      `json:"cancel_at,omitempty"`
	CanceledAt         *time.Time      `json:"canceled_at,omitempty"`
	GatewayCreatedAt   *time.Time      `json:"gateway_created_at,omitempty"`
	ProcessedAt        time.Time       `json:"processed_at"`
	Metadata           ledger.Metadata `json:"metadata"`
	Orphaned           bool            `json:"orphaned"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func toResponse(r *ledger.Record) recordResponse {
	metadata := r.Metadata
	if metadata == nil {
		metadata = ledger.Metadata{}
	}

	return recordResponse{
		ID:                 r.ID,
		ExternalID:         r.ExternalID,
		ExternalParentID:   r.ExternalParentID,
		MemberID:           r.MemberID,
		AccountID:          r.AccountID,
		Type:               r.Type,
		Status:             r.Status,
		Amount:             r.Amount,
		AmountRefunded:     r.AmountRefunded,
		Currency:           r.Currency,
		TrialStart:         r.TrialStart,
		TrialEnd:           r.TrialEnd,
		CurrentPeriodStart: r.CurrentPeriodStart,
		CurrentPeriodEnd:   r.CurrentPeriodEnd,
		CancelAt:           r.CancelAt,
		CanceledAt:         r.CanceledAt,
		GatewayCreatedAt:   r.GatewayCreatedAt,
		ProcessedAt:        r.ProcessedAt,
		Metadata:           metadata,
		Orphaned:           !r.Linked(),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func toResponseList(records []*ledger.Record) []recordResponse {
	resp := make([]recordResponse, len(records))
	for i, r := range records {
		resp[i] = toResponse(r)
	}

	return resp
}
