// Package provisioning creates the per-tenant database resources the
// onboarding process depends on. Every operation is idempotent per tenant:
// calling it again after a partial failure or a redelivered signal converges
// on the same end state.
package provisioning

import (
	"context"
	"strings"

	id "synergy/pkg/domain"
)

// Gateway provisions tenant infrastructure.
type Gateway interface {
	// ProvisionTenantDatabase creates the tenant's dedicated database.
	// A database that already exists is treated as success.
	ProvisionTenantDatabase(ctx context.Context, tenantID id.TenantID) error

	// CreatePrimaryCampusSchema creates the tenant's first campus schema
	// inside the tenant database. Already-present schemas are success.
	CreatePrimaryCampusSchema(ctx context.Context, tenantID id.TenantID, schemaName string) error

	// DropTenantDatabase removes a tenant's database. Used by terminate.
	DropTenantDatabase(ctx context.Context, tenantID id.TenantID) error
}

// DatabaseName derives the tenant database name from the tenant identifier.
// UUID hyphens are not valid in unquoted identifiers.
func DatabaseName(tenantID id.TenantID) string {
	return "tenant_" + strings.ReplaceAll(tenantID.String(), "-", "_")
}
