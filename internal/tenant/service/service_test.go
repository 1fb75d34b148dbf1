package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"synergy/internal/audit"
	auditmemory "synergy/internal/audit/store/memory"
	"synergy/internal/idempotency"
	idemmemory "synergy/internal/idempotency/store/memory"
	"synergy/internal/onboarding/saga"
	sagastore "synergy/internal/onboarding/store"
	"synergy/internal/outbox"
	outboxmemory "synergy/internal/outbox/store/memory"
	"synergy/internal/tenant/models"
	"synergy/internal/tenant/service"
	tenantstore "synergy/internal/tenant/store/tenant"
	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
	"synergy/pkg/platform/tx"
	"synergy/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	tenants  *tenantstore.InMemory
	sagas    *sagastore.InMemory
	outboxSt *outboxmemory.Store
	trail    *audit.Trail
	svc      *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	s.tenants = tenantstore.NewInMemory()
	s.sagas = sagastore.NewInMemory()
	s.outboxSt = outboxmemory.New()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	guard := idempotency.NewGuard(idemmemory.New(), time.Hour)
	s.trail = audit.NewTrail(auditmemory.New(), logger)
	s.svc = service.New(
		s.tenants,
		s.sagas,
		guard,
		outbox.NewPublisher(s.outboxSt, logger),
		tx.NewNopRunner(),
		service.WithLogger(logger),
		service.WithAuditTrail(s.trail),
	)
}

func (s *ServiceSuite) request() models.RegisterTenantRequest {
	return models.RegisterTenantRequest{
		InstitutionName: "Lakeview Academy",
		Subdomain:       "lakeview",
		AdminName:       "Jules Warden",
		AdminEmail:      "jules@lakeview.example",
	}
}

func (s *ServiceSuite) TestRegisterTenant() {
	s.Run("creates tenant, saga, and staged event", func() {
		result, err := s.svc.RegisterTenant(s.ctx, s.request())
		s.Require().NoError(err)
		s.Equal("lakeview", result.Subdomain)
		s.Equal("lakeview.zappschool.com", result.FullDomain)
		s.Equal(models.StatusPending, result.Status)
		s.Equal("/tenants/"+result.TenantID, result.PollHint)

		tenantID, err := id.ParseTenantID(result.TenantID)
		s.Require().NoError(err)

		state, err := s.sagas.Get(s.ctx, tenantID)
		s.Require().NoError(err)
		s.Equal(saga.StateRegistered, state)

		staged := s.outboxSt.All()
		s.Require().Len(staged, 1)
		s.Equal(models.EventTypeTenantRegistered, staged[0].EventType)
		s.Equal(result.TenantID, staged[0].AggregateID)
	})

	s.Run("normalizes subdomain case", func() {
		req := s.request()
		req.Subdomain = "  BRIDGEWATER  "
		result, err := s.svc.RegisterTenant(s.ctx, req)
		s.Require().NoError(err)
		s.Equal("bridgewater", result.Subdomain)
	})

	s.Run("rejects invalid input before any side effect", func() {
		req := s.request()
		req.AdminEmail = "broken"
		req.Subdomain = "fresh-subdomain"
		_, err := s.svc.RegisterTenant(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		count, err := s.tenants.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, count, "failed validation must not create tenants")
	})
}

func (s *ServiceSuite) TestSubdomainUniqueness() {
	_, err := s.svc.RegisterTenant(s.ctx, s.request())
	s.Require().NoError(err)

	req := s.request()
	req.AdminEmail = "other@lakeview.example"
	_, err = s.svc.RegisterTenant(s.ctx, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestIdempotentRegistration() {
	s.Run("replays the original response", func() {
		req := s.request()
		req.IdempotencyKey = "client-key-1"

		first, err := s.svc.RegisterTenant(s.ctx, req)
		s.Require().NoError(err)

		second, err := s.svc.RegisterTenant(s.ctx, req)
		s.Require().NoError(err)
		s.Equal(first.TenantID, second.TenantID)
		s.Equal(first.RegisteredAt, second.RegisteredAt)

		count, err := s.tenants.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, count, "replay must not create a second tenant")
		s.Len(s.outboxSt.All(), 1, "replay must not re-stage events")
	})

	s.Run("a failed registration frees its key for retry", func() {
		taken := s.request()
		taken.Subdomain = "northgate"
		_, err := s.svc.RegisterTenant(s.ctx, taken)
		s.Require().NoError(err)

		req := s.request()
		req.Subdomain = "northgate"
		req.AdminEmail = "retry@lakeview.example"
		req.IdempotencyKey = "client-key-retry"
		_, err = s.svc.RegisterTenant(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		req.Subdomain = "northgate-two"
		result, err := s.svc.RegisterTenant(s.ctx, req)
		s.Require().NoError(err, "the failed attempt must not hold the key")
		s.Equal("northgate-two", result.Subdomain)
	})

	s.Run("different keys execute independently", func() {
		req := s.request()
		req.Subdomain = "eastgate"
		req.IdempotencyKey = "client-key-2"
		_, err := s.svc.RegisterTenant(s.ctx, req)
		s.Require().NoError(err)

		req2 := s.request()
		req2.Subdomain = "westgate"
		req2.IdempotencyKey = "client-key-3"
		_, err = s.svc.RegisterTenant(s.ctx, req2)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestLifecycleOperations() {
	result, err := s.svc.RegisterTenant(s.ctx, s.request())
	s.Require().NoError(err)
	tenantID, err := id.ParseTenantID(result.TenantID)
	s.Require().NoError(err)

	// Walk the tenant to ACTIVE directly through the store for setup.
	t, err := s.tenants.FindByID(s.ctx, tenantID)
	s.Require().NoError(err)
	now := requestcontext.Now(s.ctx)
	s.Require().NoError(t.StartProvisioning(now))
	s.Require().NoError(t.Activate(now))
	t.DrainEvents()
	s.Require().NoError(s.tenants.Update(s.ctx, t))

	s.Run("suspend then reactivate", func() {
		s.Require().NoError(s.svc.Suspend(s.ctx, tenantID, "invoice overdue"))
		t, _ := s.tenants.FindByID(s.ctx, tenantID)
		s.Equal(models.StatusSuspended, t.Status)

		s.Require().NoError(s.svc.Reactivate(s.ctx, tenantID))
		t, _ = s.tenants.FindByID(s.ctx, tenantID)
		s.Equal(models.StatusActive, t.Status)
	})

	s.Run("suspend on pending tenant is rejected", func() {
		other, err := s.svc.RegisterTenant(s.ctx, models.RegisterTenantRequest{
			InstitutionName: "Hillcrest School",
			Subdomain:       "hillcrest",
			AdminName:       "Sam Lee",
			AdminEmail:      "sam@hillcrest.example",
		})
		s.Require().NoError(err)
		otherID, _ := id.ParseTenantID(other.TenantID)

		err = s.svc.Suspend(s.ctx, otherID, "nope")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("terminate is permanent", func() {
		s.Require().NoError(s.svc.Terminate(s.ctx, tenantID, "contract ended"))
		err := s.svc.Reactivate(s.ctx, tenantID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown tenant is not found", func() {
		err := s.svc.Suspend(s.ctx, id.NewTenantID(), "ghost")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("every action lands on the audit trail", func() {
		entries, err := s.svc.AuditTrail(s.ctx, tenantID)
		s.Require().NoError(err)
		s.Require().Len(entries, 3)
		s.Equal(audit.ActionTenantSuspended, entries[0].Action)
		s.Equal("invoice overdue", entries[0].Reason)
		s.Equal(audit.ActionTenantReactivated, entries[1].Action)
		s.Equal(audit.ActionTenantTerminated, entries[2].Action)
		s.Equal("contract ended", entries[2].Reason)
		s.Equal(requestcontext.Now(s.ctx), entries[0].OccurredAt)
	})
}

func (s *ServiceSuite) TestRetryOnboarding() {
	result, err := s.svc.RegisterTenant(s.ctx, s.request())
	s.Require().NoError(err)
	tenantID, err := id.ParseTenantID(result.TenantID)
	s.Require().NoError(err)

	t, err := s.tenants.FindByID(s.ctx, tenantID)
	s.Require().NoError(err)
	now := requestcontext.Now(s.ctx)
	s.Require().NoError(t.StartProvisioning(now))
	s.Require().NoError(t.MarkProvisioningFailed("boom", now))
	t.DrainEvents()
	s.Require().NoError(s.tenants.Update(s.ctx, t))
	originalCorrelation := t.CorrelationID

	s.Require().NoError(s.svc.RetryOnboarding(s.ctx, tenantID))

	t, err = s.tenants.FindByID(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, t.Status)
	s.NotEqual(originalCorrelation, t.CorrelationID, "retry must mint a fresh correlation id")

	state, err := s.sagas.Get(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(saga.StateRegistered, state)

	entries, err := s.svc.AuditTrail(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionOnboardingRetried, entries[0].Action)
}

func (s *ServiceSuite) TestGetTenant() {
	result, err := s.svc.RegisterTenant(s.ctx, s.request())
	s.Require().NoError(err)
	tenantID, _ := id.ParseTenantID(result.TenantID)

	details, err := s.svc.GetTenant(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Equal("lakeview.zappschool.com", details.FullDomain)
	s.Equal(string(saga.StateRegistered), details.OnboardingState)

	_, err = s.svc.GetTenant(s.ctx, id.NewTenantID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
