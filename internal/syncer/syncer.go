// Package syncer pages through the gateway and mirrors every record into the ledger.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/metrics"
)

// ErrGatewayUnavailable is returned when no phase of a run could read from the gateway.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

var (
	historicalOrder = []gateway.Kind{
		gateway.KindSubscription,
		gateway.KindPaymentIntent,
		gateway.KindInvoice,
		gateway.KindCheckoutSession,
	}

	// Checkout sessions carry the richest metadata, so they go first.
	backfillOrder = []gateway.Kind{
		gateway.KindCheckoutSession,
		gateway.KindSubscription,
		gateway.KindPaymentIntent,
		gateway.KindInvoice,
	}
)

type Syncer struct {
	client   gateway.Client
	ingester *ingest.Ingester
	ledger   *ledger.Service
	epoch    time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Syncer)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// New returns a Syncer. epoch is the lower bound of a historical sync.
func New(client gateway.Client, ingester *ingest.Ingester, ledgerSvc *ledger.Service, epoch time.Time, opts ...Option) *Syncer {
	s := &Syncer{
		client:   client,
		ingester: ingester,
		ledger:   ledgerSvc,
		epoch:    epoch,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "syncer")

	return s
}

// Historical mirrors every record kind created since the configured epoch.
func (s *Syncer) Historical(ctx context.Context) (*Summary, error) {
	return s.run(ctx, ModeHistorical, s.epoch, historicalOrder)
}

// Backfill mirrors records created at or after cutoff, checkout sessions first.
func (s *Syncer) Backfill(ctx context.Context, cutoff time.Time) (*Summary, error) {
	if cutoff.IsZero() {
		return nil, errors.New("backfill cutoff is required")
	}

	return s.run(ctx, ModeBackfill, cutoff, backfillOrder)
}

// run walks the kinds in order. The returned summary is non-nil whenever the
// run started, including when it stopped early with an error.
func (s *Syncer) run(ctx context.Context, mode Mode, since time.Time, order []gateway.Kind) (*Summary, error) {
	if err := s.ledger.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ingest.ErrStoreUnavailable, err)
	}

	sum := &Summary{Mode: mode, Since: since, StartedAt: s.now()}
	defer func() { sum.FinishedAt = s.now() }()

	s.logger.Info("starting sync", "mode", mode, "since", since.Format(time.RFC3339))

	aborted := 0

	for _, kind := range order {
		phase, err := s.runPhase(ctx, kind, since)
		sum.Phases = append(sum.Phases, phase)

		if err != nil {
			return sum, err
		}

		if phase.Aborted() {
			aborted++
		}

		if err := ctx.Err(); err != nil {
			return sum, err
		}
	}

	if aborted == len(order) {
		return sum, fmt.Errorf("%w: every sync phase failed", ErrGatewayUnavailable)
	}

	totals := sum.Totals()
	s.logger.Info("sync finished",
		"mode", mode,
		"processed", totals.Processed,
		"created", totals.Created,
		"skipped", totals.Skipped,
		"failed", totals.Failed,
		"orphaned", totals.Orphaned,
		"aborted_phases", aborted,
	)

	return sum, nil
}

func (s *Syncer) runPhase(ctx context.Context, kind gateway.Kind, since time.Time) (*Phase, error) {
	phase := newPhase(kind)
	logger := s.logger.With("kind", kind)

	it := s.client.List(ctx, kind, gateway.ListParams{
		Since:  since,
		Expand: gateway.DefaultExpand(kind),
	})

	for it.Next() {
		phase.Processed++

		results, err := s.ingester.Ingest(ctx, it.Record())
		phase.add(results)

		if err != nil {
			logger.Error("aborting sync, ledger unavailable", "error", err)
			return phase, err
		}
	}

	if err := it.Err(); err != nil {
		phase.Err = err
		s.metrics.RecordPhaseAbort(string(kind))
		logger.Error("sync phase aborted", "processed", phase.Processed, "error", err)

		return phase, nil
	}

	logger.Info("sync phase finished",
		"processed", phase.Processed,
		"created", phase.Created,
		"skipped", phase.Skipped,
		"failed", phase.Failed,
	)

	return phase, nil
}
