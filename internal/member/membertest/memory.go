// Package membertest provides an in-memory member.Repository for tests.
package membertest

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/member"
)

type Repository struct {
	mu       sync.Mutex
	members  []*member.Member
	accounts []*member.Account

	// Writes counts SetExternalID calls that reached the repository.
	Writes int
}

func New() *Repository {
	return &Repository{}
}

func (r *Repository) AddAccount(a member.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = append(r.accounts, &a)
}

func (r *Repository) AddMember(m member.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members = append(r.members, &m)
}

// Member returns a copy of the stored member.
func (r *Repository) Member(id uuid.UUID) member.Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.ID == id {
			return *m
		}
	}

	return member.Member{}
}

func (r *Repository) sorted(keep func(*member.Member) bool) []*member.Member {
	var out []*member.Member

	for _, m := range r.members {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})

	return out
}

func (r *Repository) GetMember(_ context.Context, id uuid.UUID) (*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}

	return nil, member.ErrNotFound
}

func (r *Repository) FindByExternalID(_ context.Context, f member.Field, externalID string) (*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := r.sorted(func(m *member.Member) bool {
		return externalID != "" && m.Get(f) == externalID
	})
	if len(found) == 0 {
		return nil, member.ErrNotFound
	}

	return found[0], nil
}

func (r *Repository) GetAccount(_ context.Context, id uuid.UUID) (*member.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}

	return nil, member.ErrNotFound
}

func (r *Repository) FindAccountByCustomer(_ context.Context, customerID string) (*member.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if customerID != "" && a.GatewayCustomerID == customerID {
			cp := *a
			return &cp, nil
		}
	}

	return nil, member.ErrNotFound
}

func (r *Repository) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sorted(func(m *member.Member) bool { return m.AccountID == accountID }), nil
}

func (r *Repository) ListMissingExternalIDs(context.Context) ([]*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sorted(func(m *member.Member) bool { return len(m.Missing()) > 0 }), nil
}

func (r *Repository) SetExternalID(_ context.Context, id uuid.UUID, f member.Field, value string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes++

	for _, m := range r.members {
		if m.ID != id || m.Get(f) != "" {
			continue
		}

		switch f {
		case member.FieldSubscription:
			m.ExternalSubscriptionID = value
		case member.FieldUpfrontPayment:
			m.ExternalUpfrontPaymentID = value
		case member.FieldRegistrationFee:
			m.ExternalRegistrationFeeID = value
		default:
			return false, nil
		}

		return true, nil
	}

	return false, nil
}
