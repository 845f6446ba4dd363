// Package ledgertest provides an in-memory ledger.Repository for tests.
package ledgertest

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

type Repository struct {
	mu      sync.Mutex
	records []*ledger.Record
	raw     map[uuid.UUID]*string
	clock   time.Time

	// Writes counts every mutating call that reached the repository.
	Writes int
	// PingErr, when set, is returned from Ping.
	PingErr error
}

func New() *Repository {
	return &Repository{
		raw:   make(map[uuid.UUID]*string),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Seed stores records as-is, bypassing validation. Missing IDs are generated.
func (r *Repository) Seed(records ...*ledger.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		r.add(rec)
	}
}

// SeedRawMetadata overrides the stored metadata column of the record with the given id.
func (r *Repository) SeedRawMetadata(id uuid.UUID, raw *string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.raw[id] = raw
}

// RawMetadata returns the stored metadata column of the record with the given id.
func (r *Repository) RawMetadata(id uuid.UUID) *string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.raw[id]
}

// All returns copies of every stored record in insertion order.
func (r *Repository) All() []ledger.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ledger.Record, len(r.records))
	for i, rec := range r.records {
		out[i] = *rec
	}

	return out
}

func (r *Repository) add(rec *ledger.Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	if rec.CreatedAt.IsZero() {
		r.clock = r.clock.Add(time.Second)
		rec.CreatedAt = r.clock
		rec.UpdatedAt = r.clock
	}

	if _, ok := r.raw[rec.ID]; !ok {
		encoded, err := rec.Metadata.Encode()
		if err == nil {
			r.raw[rec.ID] = &encoded
		}
	}

	cp := *rec
	r.records = append(r.records, &cp)
}

func (r *Repository) find(externalID string) *ledger.Record {
	for _, rec := range r.records {
		if rec.ExternalID == externalID {
			return rec
		}
	}

	return nil
}

func (r *Repository) InsertIfAbsent(_ context.Context, rec *ledger.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(rec.ExternalID) != nil {
		return false, nil
	}

	r.Writes++
	r.add(rec)

	stored := r.records[len(r.records)-1]
	rec.ID = stored.ID
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = stored.UpdatedAt

	return true, nil
}

func (r *Repository) GetByExternalID(_ context.Context, externalID string) (*ledger.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.find(externalID)
	if rec == nil {
		return nil, ledger.ErrNotFound
	}

	cp := *rec

	return &cp, nil
}

func (r *Repository) ListRecords(_ context.Context, filter ledger.ListFilter) ([]*ledger.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ledger.Record

	for _, rec := range r.records {
		if filter.Type != nil && rec.Type != *filter.Type {
			continue
		}

		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}

		if filter.MemberID != nil && (rec.MemberID == nil || *rec.MemberID != *filter.MemberID) {
			continue
		}

		if filter.OrphanedOnly && rec.MemberID != nil {
			continue
		}

		if filter.CreatedFrom != nil && (rec.GatewayCreatedAt == nil || rec.GatewayCreatedAt.Before(*filter.CreatedFrom)) {
			continue
		}

		if filter.CreatedUntil != nil && (rec.GatewayCreatedAt == nil || rec.GatewayCreatedAt.After(*filter.CreatedUntil)) {
			continue
		}

		cp := *rec
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r *Repository) FindLatestLinked(_ context.Context, memberID uuid.UUID, t ledger.Type) (*ledger.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *ledger.Record

	for _, rec := range r.records {
		if rec.MemberID == nil || *rec.MemberID != memberID || rec.Type != t {
			continue
		}

		if latest == nil || newer(rec, latest) {
			latest = rec
		}
	}

	if latest == nil {
		return nil, ledger.ErrNotFound
	}

	cp := *latest

	return &cp, nil
}

func newer(a, b *ledger.Record) bool {
	switch {
	case a.GatewayCreatedAt == nil && b.GatewayCreatedAt == nil:
	case a.GatewayCreatedAt == nil:
		return false
	case b.GatewayCreatedAt == nil:
		return true
	case !a.GatewayCreatedAt.Equal(*b.GatewayCreatedAt):
		return a.GatewayCreatedAt.After(*b.GatewayCreatedAt)
	}

	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}

func (r *Repository) AttachMember(_ context.Context, id uuid.UUID, memberID uuid.UUID, accountID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes++

	for _, rec := range r.records {
		if rec.ID != id || rec.MemberID != nil {
			continue
		}

		rec.MemberID = &memberID
		if rec.AccountID == nil {
			rec.AccountID = accountID
		}

		return true, nil
	}

	return false, nil
}

func (r *Repository) ListMetadata(_ context.Context, after uuid.UUID, limit int) ([]ledger.MetadataRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]ledger.MetadataRow, 0, len(r.records))

	for _, rec := range r.records {
		if bytes.Compare(rec.ID[:], after[:]) <= 0 {
			continue
		}

		rows = append(rows, ledger.MetadataRow{ID: rec.ID, ExternalID: rec.ExternalID, Raw: r.raw[rec.ID]})
	}

	sort.Slice(rows, func(i, j int) bool {
		return bytes.Compare(rows[i].ID[:], rows[j].ID[:]) < 0
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}

func (r *Repository) ResetMetadata(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes++

	empty := ledger.EmptyMetadata
	r.raw[id] = &empty

	for _, rec := range r.records {
		if rec.ID == id {
			rec.Metadata = ledger.Metadata{}
		}
	}

	return nil
}

func (r *Repository) Ping(context.Context) error {
	return r.PingErr
}
