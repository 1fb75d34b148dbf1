// Package tenant persists the tenant aggregate. Subdomain uniqueness is a
// database constraint: two racing registrations with the same subdomain
// resolve to exactly one insert, the loser gets sentinel.ErrAlreadyUsed.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"synergy/internal/tenant/models"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/sentinel"
	txcontext "synergy/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func (s *PostgresStore) CreateIfSubdomainAvailable(ctx context.Context, t *models.Tenant) error {
	query := `
		INSERT INTO tenants (
			id, subdomain, institution_name, admin_name, admin_email, admin_phone,
			status, registered_at, activated_at, schema_name, correlation_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Subdomain.String(),
		t.InstitutionName,
		t.Contact.AdminName,
		t.Contact.AdminEmail,
		nullable(t.Contact.AdminPhone),
		string(t.Status),
		t.RegisteredAt,
		t.ActivatedAt,
		nullable(t.SchemaName),
		t.CorrelationID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("subdomain %s: %w", t.Subdomain, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.findOne(ctx, selectTenant+` WHERE id = $1`, uuid.UUID(tenantID))
}

// FindByIDForUpdate locks the tenant row for the duration of the enclosing
// transaction so concurrent mutations of the same tenant serialize instead of
// last-writer-overwriting each other. Callers must hold a transaction.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return nil, fmt.Errorf("FindByIDForUpdate requires a transaction: %w", sentinel.ErrInvalidState)
	}
	return s.findOne(ctx, selectTenant+` WHERE id = $1 FOR UPDATE`, uuid.UUID(tenantID))
}

func (s *PostgresStore) FindBySubdomain(ctx context.Context, subdomain models.Subdomain) (*models.Tenant, error) {
	return s.findOne(ctx, selectTenant+` WHERE subdomain = $1`, subdomain.String())
}

func (s *PostgresStore) Update(ctx context.Context, t *models.Tenant) error {
	query := `
		UPDATE tenants
		SET status = $2, activated_at = $3, schema_name = $4, correlation_id = $5
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID),
		string(t.Status),
		t.ActivatedAt,
		nullable(t.SchemaName),
		t.CorrelationID,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

const selectTenant = `
	SELECT id, subdomain, institution_name, admin_name, admin_email, admin_phone,
	       status, registered_at, activated_at, schema_name, correlation_id
	FROM tenants`

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Tenant, error) {
	var (
		rawID         uuid.UUID
		subdomain     string
		institution   string
		adminName     string
		adminEmail    string
		adminPhone    sql.NullString
		status        string
		registeredAt  time.Time
		activatedAt   sql.NullTime
		schemaName    sql.NullString
		correlationID string
	)
	err := s.querier(ctx).QueryRowContext(ctx, query, arg).Scan(
		&rawID, &subdomain, &institution, &adminName, &adminEmail, &adminPhone,
		&status, &registeredAt, &activatedAt, &schemaName, &correlationID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant: %w", err)
	}

	parsedStatus, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	var activated *time.Time
	if activatedAt.Valid {
		t := activatedAt.Time
		activated = &t
	}
	return models.Reconstitute(
		id.TenantID(rawID),
		models.Subdomain(subdomain),
		institution,
		models.Contact{AdminName: adminName, AdminEmail: adminEmail, AdminPhone: adminPhone.String},
		parsedStatus,
		registeredAt,
		activated,
		schemaName.String,
		correlationID,
	), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
