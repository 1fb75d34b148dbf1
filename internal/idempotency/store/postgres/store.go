// Package postgres persists idempotency records in the idempotency_records
// table. The unique constraint on idempotency_key is what makes Begin a
// race-safe claim, and Complete enlists in the caller's transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"synergy/internal/idempotency"
	"synergy/pkg/platform/sentinel"
	txcontext "synergy/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func (s *Store) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	query := `
		SELECT id, idempotency_key, operation, status, response_payload, created_at, expires_at
		FROM idempotency_records
		WHERE idempotency_key = $1
	`
	var (
		rec     idempotency.Record
		status  string
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&rec.ID, &rec.Key, &rec.Operation, &status, &payload, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query idempotency record: %w", err)
	}
	rec.Status = idempotency.RecordStatus(status)
	rec.ResponsePayload = payload
	return &rec, nil
}

func (s *Store) Insert(ctx context.Context, rec *idempotency.Record) error {
	query := `
		INSERT INTO idempotency_records (id, idempotency_key, operation, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID, rec.Key, rec.Operation, string(rec.Status), rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("idempotency key %s: %w", rec.Key, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, key string, payload []byte) error {
	query := `
		UPDATE idempotency_records
		SET status = 'COMPLETE', response_payload = $2
		WHERE idempotency_key = $1 AND status = 'IN_PROGRESS'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, key, payload)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM idempotency_records WHERE idempotency_key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete idempotency record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete idempotency record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
