package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/member"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMember(s scanner) (*member.Member, error) {
	var m member.Member

	var sub, upfront, fee sql.NullString

	if err := s.Scan(&m.ID, &m.AccountID, &sub, &upfront, &fee, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.ExternalSubscriptionID = sub.String
	m.ExternalUpfrontPaymentID = upfront.String
	m.ExternalRegistrationFeeID = fee.String

	return &m, nil
}

const selectMemberColumns = `
	m.id, m.account_id, m.external_subscription_id, m.external_upfront_payment_id,
	m.external_registration_fee_id, m.created_at
`

func (s *Store) queryMembers(ctx context.Context, query string, args ...any) ([]*member.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*member.Member

	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}

		members = append(members, m)
	}

	return members, rows.Err()
}

func (s *Store) GetMember(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	query := `SELECT ` + selectMemberColumns + ` FROM members m WHERE m.id = $1`

	m, err := scanMember(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}

		return nil, fmt.Errorf("getting member: %w", err)
	}

	return m, nil
}

func (s *Store) FindByExternalID(ctx context.Context, f member.Field, externalID string) (*member.Member, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("unknown member field %q", f)
	}

	query := `SELECT ` + selectMemberColumns + `
		FROM members m
		WHERE m.` + string(f) + ` = $1
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT 1`

	m, err := scanMember(s.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}

		return nil, fmt.Errorf("finding member by %s: %w", f, err)
	}

	return m, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*member.Account, error) {
	query := `
		SELECT id, gateway_customer_id, created_at
		FROM accounts
		WHERE id = $1
	`

	var a member.Account

	err := s.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.GatewayCustomerID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return &a, nil
}

func (s *Store) FindAccountByCustomer(ctx context.Context, customerID string) (*member.Account, error) {
	query := `
		SELECT id, gateway_customer_id, created_at
		FROM accounts
		WHERE gateway_customer_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	var a member.Account

	err := s.db.QueryRowContext(ctx, query, customerID).Scan(&a.ID, &a.GatewayCustomerID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}

		return nil, fmt.Errorf("finding account by customer: %w", err)
	}

	return &a, nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*member.Member, error) {
	query := `SELECT ` + selectMemberColumns + `
		FROM members m
		WHERE m.account_id = $1
		ORDER BY m.created_at ASC, m.id ASC`

	members, err := s.queryMembers(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing account members: %w", err)
	}

	return members, nil
}

func (s *Store) ListMissingExternalIDs(ctx context.Context) ([]*member.Member, error) {
	query := `SELECT ` + selectMemberColumns + `
		FROM members m
		WHERE COALESCE(m.external_subscription_id, '') = ''
		   OR COALESCE(m.external_upfront_payment_id, '') = ''
		   OR COALESCE(m.external_registration_fee_id, '') = ''
		ORDER BY m.created_at ASC, m.id ASC`

	members, err := s.queryMembers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing members with missing ids: %w", err)
	}

	return members, nil
}

func (s *Store) SetExternalID(ctx context.Context, id uuid.UUID, f member.Field, value string) (bool, error) {
	if !f.Valid() {
		return false, fmt.Errorf("unknown member field %q", f)
	}

	query := `
		UPDATE members
		SET ` + string(f) + ` = $1, updated_at = NOW()
		WHERE id = $2 AND COALESCE(` + string(f) + `, '') = ''
	`

	res, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", f, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", f, err)
	}

	return n > 0, nil
}
