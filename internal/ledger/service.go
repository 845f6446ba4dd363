package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	// InsertIfAbsent stores r unless a record with the same ExternalID exists.
	// It reports whether a row was written and fills r.ID on success.
	InsertIfAbsent(ctx context.Context, r *Record) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*Record, error)
	ListRecords(ctx context.Context, filter ListFilter) ([]*Record, error)
	FindLatestLinked(ctx context.Context, memberID uuid.UUID, t Type) (*Record, error)

	// AttachMember links the record only while it is still orphaned.
	AttachMember(ctx context.Context, id uuid.UUID, memberID uuid.UUID, accountID *uuid.UUID) (bool, error)

	ListMetadata(ctx context.Context, after uuid.UUID, limit int) ([]MetadataRow, error)
	ResetMetadata(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	Type         *Type
	Status       *Status
	MemberID     *uuid.UUID
	OrphanedOnly bool
	CreatedFrom  *time.Time // gateway creation time, inclusive
	CreatedUntil *time.Time // gateway creation time, inclusive
	Limit        int
}

// Create validates and stores r. It returns false without error when a record
// with the same ExternalID already exists; the stored record is left untouched.
func (s *Service) Create(ctx context.Context, r *Record) (bool, error) {
	if err := Validate(r); err != nil {
		return false, err
	}

	if r.Metadata == nil {
		r.Metadata = Metadata{}
	}

	created, err := s.repo.InsertIfAbsent(ctx, r)
	if err != nil {
		return false, fmt.Errorf("inserting ledger record %q: %w", r.ExternalID, err)
	}

	return created, nil
}

func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*Record, error) {
	return s.repo.GetByExternalID(ctx, externalID)
}

// Exists reports whether a record with the given ExternalID is already stored.
func (s *Service) Exists(ctx context.Context, externalID string) (bool, error) {
	_, err := s.repo.GetByExternalID(ctx, externalID)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return false, err
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	return s.repo.ListRecords(ctx, filter)
}

// ListOrphans returns every record without a member, oldest first.
func (s *Service) ListOrphans(ctx context.Context) ([]*Record, error) {
	return s.repo.ListRecords(ctx, ListFilter{OrphanedOnly: true})
}

func (s *Service) FindLatestLinked(ctx context.Context, memberID uuid.UUID, t Type) (*Record, error) {
	return s.repo.FindLatestLinked(ctx, memberID, t)
}

func (s *Service) AttachMember(ctx context.Context, id uuid.UUID, memberID uuid.UUID, accountID *uuid.UUID) (bool, error) {
	return s.repo.AttachMember(ctx, id, memberID, accountID)
}

func (s *Service) ListMetadata(ctx context.Context, after uuid.UUID, limit int) ([]MetadataRow, error) {
	return s.repo.ListMetadata(ctx, after, limit)
}

func (s *Service) ResetMetadata(ctx context.Context, id uuid.UUID) error {
	return s.repo.ResetMetadata(ctx, id)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
