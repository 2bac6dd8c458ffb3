package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ValidationHub/internal/domain"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

const recordColumns = `action_id, validation_id, status, feedback, agent_id, user_id, action_type, content, metadata, submitted_at, reviewed_at`

// Store implements store.RecordStore on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Put upserts the record; re-submitting an action_id overwrites the row.
func (s *Store) Put(ctx context.Context, rec *validation.Record) error {
	metadata, err := json.Marshal(rec.Request.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO validations (action_id, validation_id, status, feedback, agent_id, user_id, action_type, content, metadata, submitted_at, reviewed_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (action_id) DO UPDATE SET
		   validation_id = EXCLUDED.validation_id,
		   status = EXCLUDED.status,
		   feedback = EXCLUDED.feedback,
		   agent_id = EXCLUDED.agent_id,
		   user_id = EXCLUDED.user_id,
		   action_type = EXCLUDED.action_type,
		   content = EXCLUDED.content,
		   metadata = EXCLUDED.metadata,
		   submitted_at = EXCLUDED.submitted_at,
		   reviewed_at = EXCLUDED.reviewed_at`,
		rec.Request.ActionID, rec.ValidationID, rec.Status, rec.Feedback,
		rec.Request.AgentID, rec.Request.UserID, rec.Request.ActionType,
		rec.Request.Content, metadata, rec.SubmittedAt, rec.ReviewedAt)
	if err != nil {
		return fmt.Errorf("put record %s: %w", rec.ActionID(), err)
	}
	return nil
}

// Get returns the record for the given action_id.
func (s *Store) Get(ctx context.Context, actionID string) (*validation.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM validations WHERE action_id = $1`, actionID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get record %s: %w", actionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get record %s: %w", actionID, err)
	}
	return rec, nil
}

// Update runs the read-modify-write inside a transaction with a row lock,
// giving per-key atomicity without blocking unrelated keys.
func (s *Store) Update(ctx context.Context, actionID string, fn func(*validation.Record) error) (*validation.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update %s: %w", actionID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM validations WHERE action_id = $1 FOR UPDATE`, actionID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update record %s: %w", actionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update record %s: %w", actionID, err)
	}

	if err := fn(rec); err != nil {
		return nil, err
	}

	// Persist the whole fn-applied record so this backend matches the
	// port contract, not just the fields today's callers happen to touch.
	metadata, err := json.Marshal(rec.Request.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE validations SET
		   validation_id = $2,
		   status = $3,
		   feedback = NULLIF($4, ''),
		   agent_id = $5,
		   user_id = $6,
		   action_type = $7,
		   content = $8,
		   metadata = $9,
		   submitted_at = $10,
		   reviewed_at = $11
		 WHERE action_id = $1`,
		actionID, rec.ValidationID, rec.Status, rec.Feedback,
		rec.Request.AgentID, rec.Request.UserID, rec.Request.ActionType,
		rec.Request.Content, metadata, rec.SubmittedAt, rec.ReviewedAt)
	if err != nil {
		return nil, fmt.Errorf("update record %s: %w", actionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update %s: %w", actionID, err)
	}
	return rec, nil
}

// List returns all records keyed by action_id, filtered by status when non-empty.
func (s *Store) List(ctx context.Context, status validation.Status) (map[string]*validation.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM validations`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*validation.Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out[rec.ActionID()] = rec
	}
	return out, rows.Err()
}

// scanRecord reads one validations row into a domain record.
func scanRecord(row pgx.Row) (*validation.Record, error) {
	var (
		rec        validation.Record
		feedback   *string
		metadata   []byte
		reviewedAt *time.Time
	)
	err := row.Scan(
		&rec.Request.ActionID, &rec.ValidationID, &rec.Status, &feedback,
		&rec.Request.AgentID, &rec.Request.UserID, &rec.Request.ActionType,
		&rec.Request.Content, &metadata, &rec.SubmittedAt, &reviewedAt)
	if err != nil {
		return nil, err
	}
	if feedback != nil {
		rec.Feedback = *feedback
	}
	rec.ReviewedAt = reviewedAt
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Request.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &rec, nil
}
