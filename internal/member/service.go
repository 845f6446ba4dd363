package member

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=member
type Repository interface {
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	// FindByExternalID returns the oldest member whose field f equals externalID.
	FindByExternalID(ctx context.Context, f Field, externalID string) (*Member, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	FindAccountByCustomer(ctx context.Context, customerID string) (*Account, error)
	// ListByAccount returns the account's members ordered by creation time, then id.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Member, error)
	ListMissingExternalIDs(ctx context.Context) ([]*Member, error)
	// SetExternalID fills f only while it is still empty.
	SetExternalID(ctx context.Context, id uuid.UUID, f Field, value string) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.repo.GetMember(ctx, id)
}

func (s *Service) FindByExternalID(ctx context.Context, f Field, externalID string) (*Member, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("unknown member field %q", f)
	}

	return s.repo.FindByExternalID(ctx, f, externalID)
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) FindAccountByCustomer(ctx context.Context, customerID string) (*Account, error) {
	return s.repo.FindAccountByCustomer(ctx, customerID)
}

// FirstByAccount returns the earliest created member of the account.
func (s *Service) FirstByAccount(ctx context.Context, accountID uuid.UUID) (*Member, error) {
	members, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if len(members) == 0 {
		return nil, ErrNotFound
	}

	return members[0], nil
}

func (s *Service) ListMissingExternalIDs(ctx context.Context) ([]*Member, error) {
	return s.repo.ListMissingExternalIDs(ctx)
}

func (s *Service) SetExternalID(ctx context.Context, id uuid.UUID, f Field, value string) (bool, error) {
	if !f.Valid() {
		return false, fmt.Errorf("unknown member field %q", f)
	}

	return s.repo.SetExternalID(ctx, id, f, value)
}
