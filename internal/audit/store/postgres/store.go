// Package postgres persists the operator audit trail.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"synergy/internal/audit"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/tx"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) execer(ctx context.Context) execer {
	if txn, ok := tx.From(ctx); ok {
		return txn
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO tenant_audit_log (id, tenant_id, action, reason, correlation_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID.String(),
		entry.TenantID.String(),
		entry.Action,
		entry.Reason,
		entry.CorrelationID,
		entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]audit.Entry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, tenant_id, action, reason, correlation_id, occurred_at
		FROM tenant_audit_log
		WHERE tenant_id = $1
		ORDER BY occurred_at, id`,
		tenantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry              audit.Entry
			rawID, rawTenantID string
		)
		if err := rows.Scan(&rawID, &rawTenantID, &entry.Action, &entry.Reason, &entry.CorrelationID, &entry.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entryID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parsing audit entry id: %w", err)
		}
		entryTenantID, err := uuid.Parse(rawTenantID)
		if err != nil {
			return nil, fmt.Errorf("parsing audit tenant id: %w", err)
		}
		entry.ID = id.EventID(entryID)
		entry.TenantID = id.TenantID(entryTenantID)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
