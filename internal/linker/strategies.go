package linker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/member"
)

const (
	NameMetadata         = "metadata"
	NameCachedExternalID = "cached-external-id"
	NameCustomerAccount  = "customer-account"

	metadataMemberKey  = "playerId"
	metadataAccountKey = "userId"

	customerCacheTTL = 5 * time.Minute
)

// NewDefault returns the production chain: metadata, cached external id, customer account.
func NewDefault(members *member.Service, cacheSize int) (*Linker, error) {
	customer, err := NewCustomerAccount(members, cacheSize)
	if err != nil {
		return nil, err
	}

	return New(NewMetadata(members), NewCachedExternalID(members), customer), nil
}

func matchMember(m *member.Member, accountID uuid.UUID) Match {
	memberID := m.ID
	return Match{MemberID: &memberID, AccountID: &accountID}
}

// Metadata trusts member and account ids written into the record's metadata
// at checkout time, once they are known to exist. A userId without a usable
// playerId yields an account-only match.
type Metadata struct {
	members *member.Service
}

func NewMetadata(members *member.Service) *Metadata {
	return &Metadata{members: members}
}

func (s *Metadata) Name() string { return NameMetadata }

func (s *Metadata) Resolve(ctx context.Context, subj Subject) (Match, bool, error) {
	acct, err := s.account(ctx, subj)
	if err != nil {
		return Match{}, false, err
	}

	m, err := s.member(ctx, subj)
	if err != nil {
		return Match{}, false, err
	}

	switch {
	case m != nil && acct != nil:
		return matchMember(m, *acct), true, nil
	case m != nil:
		return matchMember(m, m.AccountID), true, nil
	case acct != nil:
		return Match{AccountID: acct}, true, nil
	}

	return Match{}, false, nil
}

func (s *Metadata) member(ctx context.Context, subj Subject) (*member.Member, error) {
	raw := subj.Metadata[metadataMemberKey]
	if raw == "" {
		return nil, nil
	}

	memberID, err := uuid.Parse(raw)
	if err != nil {
		slog.Debug("ignoring malformed member id in metadata", "external_id", subj.ExternalID, "value", raw)
		return nil, nil
	}

	m, err := s.members.Get(ctx, memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting member: %w", err)
	}

	return m, nil
}

func (s *Metadata) account(ctx context.Context, subj Subject) (*uuid.UUID, error) {
	raw := subj.Metadata[metadataAccountKey]
	if raw == "" {
		return nil, nil
	}

	accountID, err := uuid.Parse(raw)
	if err != nil {
		slog.Debug("ignoring malformed account id in metadata", "external_id", subj.ExternalID, "value", raw)
		return nil, nil
	}

	a, err := s.members.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return &a.ID, nil
}

// CachedExternalID finds the member whose cached gateway id field already
// points at this record. Monthly payments match their parent subscription.
type CachedExternalID struct {
	members *member.Service
}

func NewCachedExternalID(members *member.Service) *CachedExternalID {
	return &CachedExternalID{members: members}
}

func (s *CachedExternalID) Name() string { return NameCachedExternalID }

func (s *CachedExternalID) Resolve(ctx context.Context, subj Subject) (Match, bool, error) {
	field, externalID := lookupKey(subj)
	if field == "" || externalID == "" {
		return Match{}, false, nil
	}

	m, err := s.members.FindByExternalID(ctx, field, externalID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return Match{}, false, nil
		}

		return Match{}, false, fmt.Errorf("finding member by %s: %w", field, err)
	}

	return matchMember(m, m.AccountID), true, nil
}

func lookupKey(subj Subject) (member.Field, string) {
	if f, ok := member.FieldForType(subj.Type); ok {
		return f, subj.ExternalID
	}

	if subj.Type == ledger.TypeMonthlyPayment {
		return member.FieldSubscription, subj.ExternalParentID
	}

	return "", ""
}

// CustomerAccount maps the gateway customer to its account and picks the
// account's earliest member. Hits are cached for a few minutes; misses are
// never cached, so an account created later is found on the next lookup.
type CustomerAccount struct {
	members *member.Service
	cache   *expirable.LRU[string, Match]
}

func NewCustomerAccount(members *member.Service, cacheSize int) (*CustomerAccount, error) {
	if cacheSize < 0 {
		return nil, fmt.Errorf("invalid customer cache size %d", cacheSize)
	}

	if cacheSize == 0 {
		cacheSize = 1024
	}

	return &CustomerAccount{
		members: members,
		cache:   expirable.NewLRU[string, Match](cacheSize, nil, customerCacheTTL),
	}, nil
}

func (s *CustomerAccount) Name() string { return NameCustomerAccount }

func (s *CustomerAccount) Resolve(ctx context.Context, subj Subject) (Match, bool, error) {
	if subj.CustomerID == "" {
		return Match{}, false, nil
	}

	if cached, ok := s.cache.Get(subj.CustomerID); ok {
		return cached, true, nil
	}

	m, err := s.resolve(ctx, subj.CustomerID)
	if err != nil {
		return Match{}, false, err
	}

	if m == nil {
		return Match{}, false, nil
	}

	s.cache.Add(subj.CustomerID, *m)

	return *m, true, nil
}

func (s *CustomerAccount) resolve(ctx context.Context, customerID string) (*Match, error) {
	acct, err := s.members.FindAccountByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding account: %w", err)
	}

	first, err := s.members.FirstByAccount(ctx, acct.ID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing account members: %w", err)
	}

	m := matchMember(first, acct.ID)

	return &m, nil
}
