// Package ingest mirrors single gateway records into the ledger.
package ingest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/currency"

	"github.com/MrJamesThe3rd/clubledger/internal/classifier"
	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/linker"
	"github.com/MrJamesThe3rd/clubledger/internal/metrics"
)

// ErrStoreUnavailable marks failures caused by losing the database connection.
// Callers stop processing when they see it.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes what happened to one record.
type Result struct {
	ExternalID string
	Kind       gateway.Kind
	Outcome    Outcome
	Type       ledger.Type
	Amount     int64
	Currency   string
	Orphaned   bool   // created without a member link
	Strategy   string // linking strategy that matched
	Err        error
}

type Ingester struct {
	ledger  *ledger.Service
	linker  *linker.Linker
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Ingester)

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingester) { i.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(i *Ingester) { i.now = now }
}

func New(ledgerSvc *ledger.Service, l *linker.Linker, opts ...Option) *Ingester {
	i := &Ingester{
		ledger: ledgerSvc,
		linker: l,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	i.logger = i.logger.With("component", "ingest")

	return i
}

// Ingest mirrors rec into the ledger. A checkout session yields one result per
// object it created. Per-record failures are reported in the results; the
// returned error is non-nil only when the store became unavailable.
func (i *Ingester) Ingest(ctx context.Context, rec gateway.Record) ([]Result, error) {
	records := Expand(rec)
	if len(records) == 0 {
		i.logger.Debug("checkout session created nothing to mirror", "session_id", rec.ID)
		return nil, nil
	}

	results := make([]Result, 0, len(records))

	for _, r := range records {
		res, err := i.ingestOne(ctx, r)
		results = append(results, res)
		i.metrics.RecordIngest(string(res.Kind), string(res.Outcome))

		if err != nil {
			return results, err
		}
	}

	return results, nil
}

func (i *Ingester) ingestOne(ctx context.Context, rec gateway.Record) (Result, error) {
	res := Result{ExternalID: rec.ID, Kind: rec.Kind}

	if rec.ID == "" {
		return i.fail(res, errors.New("record has no id"))
	}

	exists, err := i.ledger.Exists(ctx, rec.ID)
	if err != nil {
		return i.fail(res, fmt.Errorf("checking existing record: %w", err))
	}

	if exists {
		i.logger.Debug("record already exists, skipping", "external_id", rec.ID, "kind", rec.Kind)

		res.Outcome = OutcomeSkipped

		return res, nil
	}

	typ, status := classifier.Classify(rec)

	match, err := i.linker.Link(ctx, linker.Subject{
		ExternalID:       rec.ID,
		ExternalParentID: rec.ParentID,
		CustomerID:       rec.CustomerID,
		Type:             typ,
		Metadata:         rec.Metadata,
	})
	if err != nil {
		return i.fail(res, err)
	}

	entry := &ledger.Record{
		ExternalID:         rec.ID,
		ExternalParentID:   rec.ParentID,
		MemberID:           match.MemberID,
		AccountID:          match.AccountID,
		Type:               typ,
		Status:             status,
		Amount:             rec.Amount,
		AmountRefunded:     rec.AmountRefunded,
		Currency:           i.normalizeCurrency(rec),
		TrialStart:         rec.TrialStart,
		TrialEnd:           rec.TrialEnd,
		CurrentPeriodStart: rec.CurrentPeriodStart,
		CurrentPeriodEnd:   rec.CurrentPeriodEnd,
		CancelAt:           rec.CancelAt,
		CanceledAt:         rec.CanceledAt,
		ProcessedAt:        i.now().UTC(),
		Metadata:           ledger.FromStrings(rec.Metadata),
	}

	if !rec.CreatedAt.IsZero() {
		entry.GatewayCreatedAt = &rec.CreatedAt
	}

	created, err := i.ledger.Create(ctx, entry)
	if err != nil {
		return i.fail(res, err)
	}

	res.Type = typ
	res.Amount = entry.Amount
	res.Currency = entry.Currency
	res.Strategy = match.Strategy

	if !created {
		i.logger.Debug("record inserted concurrently, skipping", "external_id", rec.ID, "kind", rec.Kind)

		res.Outcome = OutcomeSkipped

		return res, nil
	}

	res.Outcome = OutcomeCreated
	res.Orphaned = !match.Resolved()

	if res.Orphaned {
		i.logger.Info("created unlinked record", "external_id", rec.ID, "type", typ)
	} else {
		i.logger.Debug("created record", "external_id", rec.ID, "type", typ, "strategy", match.Strategy)
	}

	return res, nil
}

func (i *Ingester) fail(res Result, err error) (Result, error) {
	res.Outcome = OutcomeFailed
	res.Err = err

	i.logger.Error("failed to ingest record", "external_id", res.ExternalID, "kind", res.Kind, "error", err)

	if Unavailable(err) {
		return res, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return res, nil
}

func (i *Ingester) normalizeCurrency(rec gateway.Record) string {
	if rec.Currency == "" {
		return ""
	}

	unit, err := currency.ParseISO(rec.Currency)
	if err != nil {
		i.logger.Warn("dropping unrecognised currency", "external_id", rec.ID, "currency", rec.Currency)
		return ""
	}

	return unit.String()
}

// Unavailable reports whether err means the database cannot be reached.
func Unavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
