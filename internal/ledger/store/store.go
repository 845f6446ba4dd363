package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

const uniqueViolation = "23505"

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

// scanRecord reads a ledger row in selectRecordColumns order.
func scanRecord(s scanner) (*ledger.Record, error) {
	var r ledger.Record

	var typeStr, statusStr string

	var parentID, currency, lastError, metadata sql.NullString

	if err := s.Scan(
		&r.ID, &r.ExternalID, &parentID, &r.MemberID, &r.AccountID,
		&typeStr, &statusStr, &r.Amount, &r.AmountRefunded, &currency,
		&r.TrialStart, &r.TrialEnd, &r.CurrentPeriodStart, &r.CurrentPeriodEnd,
		&r.CancelAt, &r.CanceledAt, &r.GatewayCreatedAt, &r.ProcessedAt,
		&metadata, &lastError, &r.RetryCount,
		&r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Type = ledger.Type(typeStr)
	r.Status = ledger.Status(statusStr)
	r.ExternalParentID = parentID.String
	r.Currency = currency.String
	r.LastError = lastError.String

	var raw *string
	if metadata.Valid {
		raw = &metadata.String
	}

	// Malformed values read as empty; rewriting them is the repair toolkit's job.
	r.Metadata, _ = ledger.ParseMetadata(raw)

	return &r, nil
}

const selectRecordColumns = `
	r.id, r.external_id, r.external_parent_id, r.member_id, r.account_id,
	r.type, r.status, r.amount_minor, r.amount_refunded_minor, r.currency,
	r.trial_start, r.trial_end, r.current_period_start, r.current_period_end,
	r.cancel_at, r.canceled_at, r.gateway_created_at, r.processed_at,
	r.metadata, r.last_error, r.retry_count,
	r.created_at, r.updated_at
`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) InsertIfAbsent(ctx context.Context, r *ledger.Record) (bool, error) {
	metadata, err := r.Metadata.Encode()
	if err != nil {
		return false, fmt.Errorf("encoding metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_records (
			external_id, external_parent_id, member_id, account_id,
			type, status, amount_minor, amount_refunded_minor, currency,
			trial_start, trial_end, current_period_start, current_period_end,
			cancel_at, canceled_at, gateway_created_at, processed_at,
			metadata, last_error, retry_count, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		r.ExternalID,
		nullString(r.ExternalParentID),
		r.MemberID,
		r.AccountID,
		r.Type,
		r.Status,
		r.Amount,
		r.AmountRefunded,
		nullString(r.Currency),
		r.TrialStart,
		r.TrialEnd,
		r.CurrentPeriodStart,
		r.CurrentPeriodEnd,
		r.CancelAt,
		r.CanceledAt,
		r.GatewayCreatedAt,
		r.ProcessedAt,
		metadata,
		nullString(r.LastError),
		r.RetryCount,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}

		return false, fmt.Errorf("creating ledger record: %w", err)
	}

	return true, nil
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*ledger.Record, error) {
	query := `SELECT ` + selectRecordColumns + `
		FROM ledger_records r
		WHERE r.external_id = $1`

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting ledger record: %w", err)
	}

	return r, nil
}

func (s *Store) ListRecords(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Record, error) {
	query := `SELECT ` + selectRecordColumns + `
		FROM ledger_records r
		WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Type != nil {
		query += fmt.Sprintf(" AND r.type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND r.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.MemberID != nil {
		query += fmt.Sprintf(" AND r.member_id = $%d", argIdx)

		args = append(args, *filter.MemberID)
		argIdx++
	}

	if filter.OrphanedOnly {
		query += " AND r.member_id IS NULL"
	}

	if filter.CreatedFrom != nil {
		query += fmt.Sprintf(" AND r.gateway_created_at >= $%d", argIdx)

		args = append(args, *filter.CreatedFrom)
		argIdx++
	}

	if filter.CreatedUntil != nil {
		query += fmt.Sprintf(" AND r.gateway_created_at <= $%d", argIdx)

		args = append(args, *filter.CreatedUntil)
		argIdx++
	}

	query += " ORDER BY r.created_at ASC, r.id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ledger records: %w", err)
	}
	defer rows.Close()

	var records []*ledger.Record

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ledger record: %w", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger records: %w", err)
	}

	return records, nil
}

func (s *Store) FindLatestLinked(ctx context.Context, memberID uuid.UUID, t ledger.Type) (*ledger.Record, error) {
	query := `SELECT ` + selectRecordColumns + `
		FROM ledger_records r
		WHERE r.member_id = $1 AND r.type = $2
		ORDER BY r.gateway_created_at DESC NULLS LAST, r.id DESC
		LIMIT 1`

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, memberID, t))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("finding linked record: %w", err)
	}

	return r, nil
}

func (s *Store) AttachMember(ctx context.Context, id uuid.UUID, memberID uuid.UUID, accountID *uuid.UUID) (bool, error) {
	query := `
		UPDATE ledger_records
		SET member_id = $1, account_id = COALESCE(account_id, $2), updated_at = NOW()
		WHERE id = $3 AND member_id IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, memberID, accountID, id)
	if err != nil {
		return false, fmt.Errorf("attaching member: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attaching member: %w", err)
	}

	return n > 0, nil
}

func (s *Store) ListMetadata(ctx context.Context, after uuid.UUID, limit int) ([]ledger.MetadataRow, error) {
	query := `
		SELECT id, external_id, metadata
		FROM ledger_records
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("listing metadata: %w", err)
	}
	defer rows.Close()

	var out []ledger.MetadataRow

	for rows.Next() {
		var (
			row ledger.MetadataRow
			raw sql.NullString
		)

		if err := rows.Scan(&row.ID, &row.ExternalID, &raw); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}

		if raw.Valid {
			row.Raw = &raw.String
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metadata: %w", err)
	}

	return out, nil
}

func (s *Store) ResetMetadata(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE ledger_records
		SET metadata = $1, updated_at = NOW()
		WHERE id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, ledger.EmptyMetadata, id); err != nil {
		return fmt.Errorf("resetting metadata: %w", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
