// Package repair fixes drift between the ledger and the member store.
//
// Every procedure first builds its full list of changes and only then applies
// them, so a dry run reports exactly what a real run would write.
package repair

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/member"
	"github.com/MrJamesThe3rd/clubledger/internal/metrics"
)

type Procedure string

const (
	ProcedureLinkOrphans       Procedure = "link-orphans"
	ProcedureBackfillMemberIDs Procedure = "backfill-member-ids"
	ProcedureNormalizeMetadata Procedure = "normalize-metadata"
)

type Target string

const (
	TargetLedger Target = "ledger"
	TargetMember Target = "member"
)

const defaultPageSize = 500

type Options struct {
	DryRun bool
}

// Change is one intended write.
type Change struct {
	Target     Target
	TargetID   uuid.UUID
	ExternalID string
	Field      string
	From       string
	To         string
}

type Report struct {
	Procedure Procedure
	DryRun    bool
	Examined  int
	Changes   []Change
	Applied   int
	Failed    int
}

type Toolkit struct {
	ledger   *ledger.Service
	members  *member.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
	pageSize int
}

type Option func(*Toolkit)

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Toolkit) { t.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Toolkit) { t.logger = l }
}

// WithPageSize sets how many metadata rows are read per query.
func WithPageSize(n int) Option {
	return func(t *Toolkit) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

func New(ledgerSvc *ledger.Service, members *member.Service, opts ...Option) *Toolkit {
	t := &Toolkit{
		ledger:   ledgerSvc,
		members:  members,
		logger:   slog.Default(),
		pageSize: defaultPageSize,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.logger = t.logger.With("component", "repair")

	return t
}

// step pairs a planned change with the guarded write that applies it.
// apply reports false when the guard found the target already fixed.
type step struct {
	change Change
	apply  func(ctx context.Context) (bool, error)
}

func (t *Toolkit) execute(ctx context.Context, procedure Procedure, opts Options, examined int, steps []step) (*Report, error) {
	report := &Report{
		Procedure: procedure,
		DryRun:    opts.DryRun,
		Examined:  examined,
		Changes:   make([]Change, 0, len(steps)),
	}

	for _, s := range steps {
		report.Changes = append(report.Changes, s.change)
	}

	t.metrics.RecordRepair(string(procedure), "planned", len(steps))

	logger := t.logger.With("procedure", procedure, "dry_run", opts.DryRun)

	if opts.DryRun {
		logger.Info("repair planned", "examined", examined, "changes", len(steps))
		return report, nil
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ok, err := s.apply(ctx)
		if err != nil {
			report.Failed++
			t.metrics.RecordRepair(string(procedure), "failed", 1)
			logger.Error("failed to apply repair change",
				"target", s.change.Target,
				"target_id", s.change.TargetID,
				"field", s.change.Field,
				"error", err,
			)

			if ingest.Unavailable(err) {
				return report, fmt.Errorf("%w: %w", ingest.ErrStoreUnavailable, err)
			}

			continue
		}

		if !ok {
			logger.Debug("repair change already applied", "target", s.change.Target, "target_id", s.change.TargetID)
			continue
		}

		report.Applied++
		t.metrics.RecordRepair(string(procedure), "applied", 1)
	}

	logger.Info("repair finished",
		"examined", examined,
		"changes", len(steps),
		"applied", report.Applied,
		"failed", report.Failed,
	)

	return report, nil
}
