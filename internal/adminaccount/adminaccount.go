// Package adminaccount creates the initial administrator account for a newly
// provisioned tenant. The account carries a generated temporary password that
// must be rotated on first login.
package adminaccount

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"synergy/internal/tenant/models"
	"synergy/internal/tenant/secrets"
	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/requestcontext"
)

// Account is a tenant's administrator login.
type Account struct {
	ID           id.AdminAccountID
	TenantID     id.TenantID
	Email        string
	FullName     string
	PasswordHash string
	MustRotate   bool
	CreatedAt    time.Time
}

// Store persists admin accounts. InsertBootstrap returns
// sentinel.ErrAlreadyUsed when the tenant already holds a bootstrap account.
type Store interface {
	InsertBootstrap(ctx context.Context, account Account) error
	FindByTenant(ctx context.Context, tenantID id.TenantID) (*Account, error)
}

// Bootstrapper creates a tenant's initial admin during onboarding.
type Bootstrapper struct {
	store  Store
	logger *slog.Logger
}

func NewBootstrapper(store Store, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{store: store, logger: logger}
}

// CreateBootstrapAccount creates the admin account from the tenant's
// registered contact. Idempotent per tenant: an existing bootstrap account
// means a redelivered signal, not a failure.
func (b *Bootstrapper) CreateBootstrapAccount(ctx context.Context, t *models.Tenant) error {
	password, err := secrets.Generate()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "generating bootstrap password")
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hashing bootstrap password")
	}

	account := Account{
		ID:           id.NewAdminAccountID(),
		TenantID:     t.ID,
		Email:        t.Contact.AdminEmail,
		FullName:     t.Contact.AdminName,
		PasswordHash: hash,
		MustRotate:   true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := b.store.InsertBootstrap(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			b.logger.InfoContext(ctx, "bootstrap admin already exists", "tenant_id", t.ID)
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "persisting bootstrap admin")
	}

	b.logger.InfoContext(ctx, "bootstrap admin created",
		"tenant_id", t.ID,
		"admin_id", account.ID,
	)
	return nil
}
