//go:build integration

package provisioning_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"synergy/internal/provisioning"
	id "synergy/pkg/domain"
	"synergy/pkg/testutil/containers"
)

func TestPostgresGateway(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	postgres := containers.GetManager().GetPostgres(t)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	gateway := provisioning.NewPostgresGateway(postgres.DSN, logger)

	tenantID := id.NewTenantID()
	dbName := provisioning.DatabaseName(tenantID)

	require.NoError(t, gateway.ProvisionTenantDatabase(ctx, tenantID))
	requireDatabaseExists(t, ctx, postgres.DSN, dbName, true)

	// Redelivered provisioning signal: already-exists is success.
	require.NoError(t, gateway.ProvisionTenantDatabase(ctx, tenantID))

	require.NoError(t, gateway.CreatePrimaryCampusSchema(ctx, tenantID, "tenant_lakeview"))
	// CREATE SCHEMA IF NOT EXISTS makes redelivery harmless.
	require.NoError(t, gateway.CreatePrimaryCampusSchema(ctx, tenantID, "tenant_lakeview"))
	requireSchemaExists(t, ctx, postgres.DSN, dbName, "tenant_lakeview")

	require.NoError(t, gateway.DropTenantDatabase(ctx, tenantID))
	requireDatabaseExists(t, ctx, postgres.DSN, dbName, false)
}

func requireDatabaseExists(t *testing.T, ctx context.Context, adminDSN, dbName string, want bool) {
	t.Helper()
	conn, err := pgx.Connect(ctx, adminDSN)
	require.NoError(t, err)
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbName).Scan(&exists)
	require.NoError(t, err)
	require.Equal(t, want, exists)
}

func requireSchemaExists(t *testing.T, ctx context.Context, adminDSN, dbName, schemaName string) {
	t.Helper()
	cfg, err := pgx.ParseConfig(adminDSN)
	require.NoError(t, err)
	cfg.Database = dbName
	conn, err := pgx.ConnectConfig(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`, schemaName).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists)
}
