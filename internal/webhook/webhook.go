// Package webhook ingests gateway notifications as they arrive.
package webhook

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
)

var (
	ErrNotFound = errors.New("webhook event not found")
	// ErrInvalidEvent covers bad signatures and undecodable payloads.
	ErrInvalidEvent = errors.New("invalid webhook event")
)

// Event is a delivered notification as stored for deduplication.
type Event struct {
	ID              uuid.UUID
	EventID         string
	Type            string
	Payload         string
	ProcessedAt     *time.Time
	ProcessingError string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (e *Event) Processed() bool {
	return e.ProcessedAt != nil
}

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	// OutcomeFailed means the event was accepted but some record could not be stored.
	OutcomeFailed Outcome = "failed"
)

type Result struct {
	EventID string
	Type    string
	Outcome Outcome
	Records []ingest.Result
}
