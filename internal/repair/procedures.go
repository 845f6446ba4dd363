package repair

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/linker"
)

const (
	fieldMemberID = "member_id"
	fieldMetadata = "metadata"
	rawNull       = "NULL"
)

// LinkOrphans attaches unlinked ledger records to the member whose cached
// external id points at them.
func (t *Toolkit) LinkOrphans(ctx context.Context, opts Options) (*Report, error) {
	orphans, err := t.ledger.ListOrphans(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing orphans: %w", err)
	}

	strategy := linker.NewCachedExternalID(t.members)

	var steps []step

	for _, rec := range orphans {
		match, ok, err := strategy.Resolve(ctx, linker.Subject{
			ExternalID:       rec.ExternalID,
			ExternalParentID: rec.ExternalParentID,
			Type:             rec.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", rec.ExternalID, err)
		}

		if !ok {
			continue
		}

		id, memberID, accountID := rec.ID, *match.MemberID, match.AccountID

		steps = append(steps, step{
			change: Change{
				Target:     TargetLedger,
				TargetID:   id,
				ExternalID: rec.ExternalID,
				Field:      fieldMemberID,
				To:         memberID.String(),
			},
			apply: func(ctx context.Context) (bool, error) {
				return t.ledger.AttachMember(ctx, id, memberID, accountID)
			},
		})
	}

	return t.execute(ctx, ProcedureLinkOrphans, opts, len(orphans), steps)
}

// ApplyLink applies a single change produced by LinkOrphans.
func (t *Toolkit) ApplyLink(ctx context.Context, c Change) (bool, error) {
	if c.Target != TargetLedger || c.Field != fieldMemberID {
		return false, fmt.Errorf("not a link change: %s.%s", c.Target, c.Field)
	}

	memberID, err := uuid.Parse(c.To)
	if err != nil {
		return false, fmt.Errorf("parsing member id: %w", err)
	}

	m, err := t.members.Get(ctx, memberID)
	if err != nil {
		return false, fmt.Errorf("getting member: %w", err)
	}

	accountID := m.AccountID

	ok, err := t.ledger.AttachMember(ctx, c.TargetID, memberID, &accountID)
	if err != nil {
		return false, err
	}

	if ok {
		t.metrics.RecordRepair(string(ProcedureLinkOrphans), "applied", 1)
	}

	return ok, nil
}

// BackfillMemberIDs fills empty cached external id fields on members from the
// most recent ledger record of the matching type linked to them.
func (t *Toolkit) BackfillMemberIDs(ctx context.Context, opts Options) (*Report, error) {
	members, err := t.members.ListMissingExternalIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	var steps []step

	for _, m := range members {
		for _, f := range m.Missing() {
			rec, err := t.ledger.FindLatestLinked(ctx, m.ID, f.Type())
			if err != nil {
				if errors.Is(err, ledger.ErrNotFound) {
					continue
				}

				return nil, fmt.Errorf("finding latest %s for member %s: %w", f.Type(), m.ID, err)
			}

			id, field, value := m.ID, f, rec.ExternalID

			steps = append(steps, step{
				change: Change{
					Target:     TargetMember,
					TargetID:   id,
					ExternalID: value,
					Field:      string(field),
					To:         value,
				},
				apply: func(ctx context.Context) (bool, error) {
					return t.members.SetExternalID(ctx, id, field, value)
				},
			})
		}
	}

	return t.execute(ctx, ProcedureBackfillMemberIDs, opts, len(members), steps)
}

// NormalizeMetadata rewrites every stored metadata value that is not a JSON
// object to the empty object. Well-formed values are never touched.
func (t *Toolkit) NormalizeMetadata(ctx context.Context, opts Options) (*Report, error) {
	var (
		steps    []step
		examined int
		after    uuid.UUID
	)

	for {
		rows, err := t.ledger.ListMetadata(ctx, after, t.pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing metadata after %s: %w", after, err)
		}

		for _, row := range rows {
			examined++

			if _, ok := ledger.ParseMetadata(row.Raw); ok {
				continue
			}

			from := rawNull
			if row.Raw != nil {
				from = *row.Raw
			}

			id := row.ID

			steps = append(steps, step{
				change: Change{
					Target:     TargetLedger,
					TargetID:   id,
					ExternalID: row.ExternalID,
					Field:      fieldMetadata,
					From:       from,
					To:         ledger.EmptyMetadata,
				},
				apply: func(ctx context.Context) (bool, error) {
					return true, t.ledger.ResetMetadata(ctx, id)
				},
			})
		}

		if len(rows) < t.pageSize {
			break
		}

		after = rows[len(rows)-1].ID
	}

	return t.execute(ctx, ProcedureNormalizeMetadata, opts, examined, steps)
}
