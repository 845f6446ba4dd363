package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/webhook"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateIfNotExists(ctx context.Context, e *webhook.Event) (bool, *webhook.Event, error) {
	query := `
		INSERT INTO webhook_events (event_id, event_type, payload, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	stored := *e

	err := s.db.QueryRowContext(ctx, query, e.EventID, e.Type, e.Payload).
		Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt)
	if err == nil {
		return true, &stored, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return false, nil, fmt.Errorf("inserting webhook event: %w", err)
	}

	existing, err := s.GetByEventID(ctx, e.EventID)
	if err != nil {
		return false, nil, err
	}

	return false, existing, nil
}

func (s *Store) GetByEventID(ctx context.Context, eventID string) (*webhook.Event, error) {
	query := `
		SELECT id, event_id, event_type, payload, processed_at, processing_error, created_at, updated_at
		FROM webhook_events
		WHERE event_id = $1
	`

	var (
		e       webhook.Event
		procErr sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, eventID).Scan(
		&e.ID, &e.EventID, &e.Type, &e.Payload, &e.ProcessedAt, &procErr, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, webhook.ErrNotFound
		}

		return nil, fmt.Errorf("getting webhook event: %w", err)
	}

	e.ProcessingError = procErr.String

	return &e, nil
}

func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, processingErr string) error {
	query := `
		UPDATE webhook_events
		SET processed_at = NOW(), processing_error = NULLIF($1, ''), updated_at = NOW()
		WHERE id = $2
	`

	res, err := s.db.ExecContext(ctx, query, processingErr, id)
	if err != nil {
		return fmt.Errorf("marking webhook event processed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		return webhook.ErrNotFound
	}

	return nil
}
