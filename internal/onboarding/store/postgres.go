// Package store provides the saga state persistence backends.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"synergy/internal/onboarding/saga"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/platform/tx"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore keeps saga state in the onboarding_sagas table. All writes go
// through the transaction carried in the context when one is present, so a
// saga step commits or rolls back with the rest of its unit of work.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) execer {
	if txn, ok := tx.From(ctx); ok {
		return txn
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, tenantID id.TenantID, state saga.State, now time.Time) error {
	// Upsert so a retried tenant restarts its saga in place.
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO onboarding_sagas (tenant_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (tenant_id) DO UPDATE SET state = $2, updated_at = $3`,
		tenantID.String(), string(state), now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("creating onboarding saga: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, tenantID id.TenantID) (saga.State, error) {
	return s.get(ctx, tenantID, `SELECT state FROM onboarding_sagas WHERE tenant_id = $1`)
}

// GetForUpdate requires an enclosing transaction; a row lock without one
// would be released immediately and protect nothing.
func (s *PostgresStore) GetForUpdate(ctx context.Context, tenantID id.TenantID) (saga.State, error) {
	if _, ok := tx.From(ctx); !ok {
		return "", sentinel.ErrInvalidState
	}
	return s.get(ctx, tenantID, `SELECT state FROM onboarding_sagas WHERE tenant_id = $1 FOR UPDATE`)
}

func (s *PostgresStore) get(ctx context.Context, tenantID id.TenantID, query string) (saga.State, error) {
	var raw string
	err := s.execer(ctx).QueryRowContext(ctx, query, tenantID.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading onboarding saga: %w", err)
	}
	state, ok := saga.ParseState(raw)
	if !ok {
		return "", fmt.Errorf("onboarding saga for %s holds unknown state %q", tenantID, raw)
	}
	return state, nil
}

func (s *PostgresStore) CompareAndSet(ctx context.Context, tenantID id.TenantID, from, to saga.State, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE onboarding_sagas
		SET state = $3, updated_at = $4
		WHERE tenant_id = $1 AND state = $2`,
		tenantID.String(), string(from), string(to), now,
	)
	if err != nil {
		return fmt.Errorf("advancing onboarding saga: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advancing onboarding saga: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}
