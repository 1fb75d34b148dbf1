//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"synergy/internal/adminaccount"
	adminpg "synergy/internal/adminaccount/store/postgres"
	"synergy/internal/tenant/models"
	"synergy/internal/tenant/secrets"
	tenantstore "synergy/internal/tenant/store/tenant"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *adminpg.Store
	tenants  *tenantstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = adminpg.New(s.postgres.DB)
	s.tenants = tenantstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "admin_accounts", "tenants")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newTenantID(subdomain string) id.TenantID {
	parsed, err := models.ParseSubdomain(subdomain)
	s.Require().NoError(err)
	t, err := models.Register(id.NewTenantID(), parsed, "Lakeview Academy", models.Contact{
		AdminName:  "Jules Warden",
		AdminEmail: "jules@lakeview.example",
	}, "corr-1", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.CreateIfSubdomainAvailable(context.Background(), t))
	return t.ID
}

func (s *PostgresStoreSuite) newAccount(tenantID id.TenantID) adminaccount.Account {
	hash, err := secrets.Hash("initial-password")
	s.Require().NoError(err)
	return adminaccount.Account{
		ID:           id.NewAdminAccountID(),
		TenantID:     tenantID,
		Email:        "jules@lakeview.example",
		FullName:     "Jules Warden",
		PasswordHash: hash,
		MustRotate:   true,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	tenantID := s.newTenantID("lakeview")
	account := s.newAccount(tenantID)

	s.Require().NoError(s.store.InsertBootstrap(ctx, account))

	found, err := s.store.FindByTenant(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(account.ID, found.ID)
	s.Equal(tenantID, found.TenantID)
	s.Equal(account.Email, found.Email)
	s.True(found.MustRotate)
	s.NoError(secrets.Verify("initial-password", found.PasswordHash))
}

func (s *PostgresStoreSuite) TestOneBootstrapAccountPerTenant() {
	ctx := context.Background()
	tenantID := s.newTenantID("lakeview")

	s.Require().NoError(s.store.InsertBootstrap(ctx, s.newAccount(tenantID)))

	err := s.store.InsertBootstrap(ctx, s.newAccount(tenantID))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByTenant(context.Background(), id.NewTenantID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
