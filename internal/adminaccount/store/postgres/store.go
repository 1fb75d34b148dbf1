// Package postgres stores admin accounts in the platform database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"synergy/internal/adminaccount"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/platform/tx"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
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

// InsertBootstrap relies on the unique index on tenant_id to make bootstrap
// creation race-safe.
func (s *Store) InsertBootstrap(ctx context.Context, account adminaccount.Account) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO admin_accounts (id, tenant_id, email, full_name, password_hash, must_rotate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID.String(),
		account.TenantID.String(),
		account.Email,
		account.FullName,
		account.PasswordHash,
		account.MustRotate,
		account.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("inserting admin account: %w", err)
	}
	return nil
}

func (s *Store) FindByTenant(ctx context.Context, tenantID id.TenantID) (*adminaccount.Account, error) {
	var (
		account            adminaccount.Account
		rawID, rawTenantID string
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, tenant_id, email, full_name, password_hash, must_rotate, created_at
		FROM admin_accounts
		WHERE tenant_id = $1`,
		tenantID.String(),
	).Scan(&rawID, &rawTenantID, &account.Email, &account.FullName, &account.PasswordHash, &account.MustRotate, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading admin account: %w", err)
	}

	accountID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("admin account %s holds malformed id: %w", rawID, err)
	}
	account.ID = id.AdminAccountID(accountID)
	parsedTenant, err := id.ParseTenantID(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("admin account %s holds malformed tenant id: %w", rawID, err)
	}
	account.TenantID = parsedTenant
	return &account, nil
}
