package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/metrics"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=webhook
type Repository interface {
	// CreateIfNotExists stores e unless an event with the same EventID exists.
	// It returns whether a row was written and the stored event either way.
	CreateIfNotExists(ctx context.Context, e *Event) (bool, *Event, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processingErr string) error
}

type Service struct {
	repo     Repository
	ingester *ingest.Ingester
	secret   string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, ingester *ingest.Ingester, secret string, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		ingester: ingester,
		secret:   secret,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "webhook")

	return s
}

// Handle verifies and ingests one delivery. Events already processed are
// acknowledged without touching the ledger. An event whose processing was
// interrupted by a store outage stays unprocessed so a redelivery retries it.
func (s *Service) Handle(ctx context.Context, payload []byte, signature string) (*Result, error) {
	ev, err := gateway.ParseEvent(payload, signature, s.secret)
	if err != nil {
		s.metrics.RecordWebhook("unknown", "invalid")
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	res := &Result{EventID: ev.ID, Type: ev.Type}
	logger := s.logger.With("event_id", ev.ID, "event_type", ev.Type)

	created, stored, err := s.repo.CreateIfNotExists(ctx, &Event{
		EventID: ev.ID,
		Type:    ev.Type,
		Payload: string(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("recording webhook event: %w", err)
	}

	if !created && stored.Processed() {
		logger.Debug("webhook event already processed")

		res.Outcome = OutcomeDuplicate
		s.metrics.RecordWebhook(ev.Type, string(res.Outcome))

		return res, nil
	}

	if ev.Record == nil {
		res.Outcome = OutcomeIgnored

		return res, s.finish(ctx, stored, res, nil)
	}

	if ev.Completed() {
		logger.Info("checkout completed", "session_id", ev.Record.ID)
	}

	results, err := s.ingester.Ingest(ctx, *ev.Record)
	res.Records = results

	if err != nil {
		s.metrics.RecordWebhook(ev.Type, string(OutcomeFailed))
		return nil, fmt.Errorf("ingesting %s: %w", ev.Record.ID, err)
	}

	var failures []error

	for _, r := range results {
		if r.Outcome == ingest.OutcomeFailed {
			failures = append(failures, fmt.Errorf("%s: %w", r.ExternalID, r.Err))
		}
	}

	res.Outcome = OutcomeProcessed
	if len(failures) > 0 {
		res.Outcome = OutcomeFailed
	}

	return res, s.finish(ctx, stored, res, errors.Join(failures...))
}

func (s *Service) finish(ctx context.Context, stored *Event, res *Result, processingErr error) error {
	s.metrics.RecordWebhook(res.Type, string(res.Outcome))

	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}

	if err := s.repo.MarkProcessed(ctx, stored.ID, msg); err != nil {
		return fmt.Errorf("marking webhook event processed: %w", err)
	}

	return nil
}
