package syncer

import (
	"time"

	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
)

type Mode string

const (
	ModeHistorical Mode = "historical"
	ModeBackfill   Mode = "backfill"
)

// Phase counts the outcome of walking one record kind.
// Processed counts gateway records read; a checkout session may account for
// several created, skipped or failed ledger records.
type Phase struct {
	Kind      gateway.Kind
	Processed int
	Created   int
	Skipped   int
	Failed    int
	Orphaned  int
	// Amounts created, in minor units, by currency.
	Amounts map[string]int64
	// Err is set when a page failure aborted the phase.
	Err error
}

func newPhase(kind gateway.Kind) *Phase {
	return &Phase{Kind: kind, Amounts: make(map[string]int64)}
}

func (p *Phase) add(results []ingest.Result) {
	for _, r := range results {
		switch r.Outcome {
		case ingest.OutcomeCreated:
			p.Created++
			p.Amounts[r.Currency] += r.Amount

			if r.Orphaned {
				p.Orphaned++
			}
		case ingest.OutcomeSkipped:
			p.Skipped++
		case ingest.OutcomeFailed:
			p.Failed++
		}
	}
}

func (p *Phase) Aborted() bool {
	return p.Err != nil
}

// Summary is the result of one sync run.
type Summary struct {
	Mode       Mode
	Since      time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Phases     []*Phase
}

// Phase returns the phase for kind, or nil if it did not run.
func (s *Summary) Phase(kind gateway.Kind) *Phase {
	for _, p := range s.Phases {
		if p.Kind == kind {
			return p
		}
	}

	return nil
}

// Totals sums the counters over all phases.
func (s *Summary) Totals() Phase {
	total := Phase{Amounts: make(map[string]int64)}

	for _, p := range s.Phases {
		total.Processed += p.Processed
		total.Created += p.Created
		total.Skipped += p.Skipped
		total.Failed += p.Failed
		total.Orphaned += p.Orphaned

		for cur, amount := range p.Amounts {
			total.Amounts[cur] += amount
		}
	}

	return total
}

func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
