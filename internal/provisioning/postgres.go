package provisioning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
)

// PostgresGateway provisions tenant databases on a Postgres cluster. DDL
// cannot run inside the caller's transaction, so each operation checks for
// the resource first and treats "already exists" as success.
//
// pgx is used directly here rather than database/sql: CREATE DATABASE must
// run on a connection with no open transaction, and a dedicated short-lived
// connection per operation guarantees that.
type PostgresGateway struct {
	adminDSN string
	logger   *slog.Logger
}

func NewPostgresGateway(adminDSN string, logger *slog.Logger) *PostgresGateway {
	return &PostgresGateway{adminDSN: adminDSN, logger: logger}
}

func (g *PostgresGateway) ProvisionTenantDatabase(ctx context.Context, tenantID id.TenantID) error {
	conn, err := pgx.Connect(ctx, g.adminDSN)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "connecting to database cluster")
	}
	defer conn.Close(ctx)

	dbName := DatabaseName(tenantID)
	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbName,
	).Scan(&exists)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "checking tenant database")
	}
	if exists {
		g.logger.InfoContext(ctx, "tenant database already present", "database", dbName)
		return nil
	}

	// Identifier built from a validated UUID; quoting guards the rest.
	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, pgx.Identifier{dbName}.Sanitize())); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "creating tenant database")
	}
	g.logger.InfoContext(ctx, "tenant database created", "database", dbName)
	return nil
}

func (g *PostgresGateway) CreatePrimaryCampusSchema(ctx context.Context, tenantID id.TenantID, schemaName string) error {
	if schemaName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "schema name is required")
	}
	conn, err := g.connectTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{schemaName}.Sanitize())); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "creating campus schema")
	}
	g.logger.InfoContext(ctx, "campus schema ready",
		"database", DatabaseName(tenantID),
		"schema", schemaName,
	)
	return nil
}

func (g *PostgresGateway) DropTenantDatabase(ctx context.Context, tenantID id.TenantID) error {
	conn, err := pgx.Connect(ctx, g.adminDSN)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "connecting to database cluster")
	}
	defer conn.Close(ctx)

	dbName := DatabaseName(tenantID)
	if _, err := conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s WITH (FORCE)`, pgx.Identifier{dbName}.Sanitize())); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "dropping tenant database")
	}
	g.logger.InfoContext(ctx, "tenant database dropped", "database", dbName)
	return nil
}

// connectTenant opens a connection with the tenant database selected.
func (g *PostgresGateway) connectTenant(ctx context.Context, tenantID id.TenantID) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(g.adminDSN)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "parsing cluster DSN")
	}
	cfg.Database = DatabaseName(tenantID)
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "connecting to tenant database")
	}
	return conn, nil
}
