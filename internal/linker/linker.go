// Package linker resolves gateway records to the member and account they belong to.
package linker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

// Subject is what the strategies know about a record being linked.
type Subject struct {
	ExternalID       string
	ExternalParentID string
	CustomerID       string
	Type             ledger.Type
	Metadata         map[string]string
}

// Match is a resolved link. The zero Match means unresolved.
type Match struct {
	MemberID  *uuid.UUID
	AccountID *uuid.UUID
	Strategy  string
}

func (m Match) Resolved() bool {
	return m.MemberID != nil
}

// Strategy is one linking heuristic. Resolve reports false when it has no opinion.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, subj Subject) (Match, bool, error)
}

// Linker applies its strategies in order and stops at the first match that
// names a member. An account-only match is kept unless a later strategy
// resolves a member.
type Linker struct {
	strategies []Strategy
}

func New(strategies ...Strategy) *Linker {
	return &Linker{strategies: strategies}
}

// Strategies returns the strategy names in evaluation order.
func (l *Linker) Strategies() []string {
	names := make([]string, len(l.strategies))
	for i, s := range l.strategies {
		names[i] = s.Name()
	}

	return names
}

// Link returns the first member match, else the first account-only match, else
// an unresolved Match. A strategy error aborts linking of this subject.
func (l *Linker) Link(ctx context.Context, subj Subject) (Match, error) {
	var partial Match

	for _, s := range l.strategies {
		m, ok, err := s.Resolve(ctx, subj)
		if err != nil {
			return Match{}, fmt.Errorf("linking %q via %s: %w", subj.ExternalID, s.Name(), err)
		}

		if !ok {
			continue
		}

		m.Strategy = s.Name()

		if m.Resolved() {
			return m, nil
		}

		if partial.AccountID == nil {
			partial = m
		}
	}

	return partial, nil
}
