package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
)

type TenantSuite struct {
	suite.Suite
	now time.Time
}

func TestTenantSuite(t *testing.T) {
	suite.Run(t, new(TenantSuite))
}

func (s *TenantSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func (s *TenantSuite) register() *Tenant {
	subdomain, err := ParseSubdomain("north-ridge")
	s.Require().NoError(err)
	t, err := Register(id.NewTenantID(), subdomain, "North Ridge High", Contact{
		AdminName:  "Robin Dean",
		AdminEmail: "robin@northridge.example",
	}, "corr-42", s.now)
	s.Require().NoError(err)
	return t
}

func (s *TenantSuite) TestRegister() {
	s.Run("starts pending with a registered event", func() {
		t := s.register()
		s.Equal(StatusPending, t.Status)
		s.Equal(s.now, t.RegisteredAt)

		events := t.DrainEvents()
		s.Require().Len(events, 1)
		s.Equal(EventTypeTenantRegistered, events[0].EventType())
		s.Equal(t.ID.String(), events[0].AggregateID())
		s.Equal("corr-42", events[0].EventCorrelationID())
		s.Empty(t.PendingEvents(), "drain must clear the buffer")
	})

	s.Run("rejects short institution name", func() {
		subdomain, _ := ParseSubdomain("north-ridge")
		_, err := Register(id.NewTenantID(), subdomain, "N", Contact{
			AdminName:  "Robin Dean",
			AdminEmail: "robin@northridge.example",
		}, "corr-42", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects invalid contact email", func() {
		subdomain, _ := ParseSubdomain("north-ridge")
		_, err := Register(id.NewTenantID(), subdomain, "North Ridge High", Contact{
			AdminName:  "Robin Dean",
			AdminEmail: "not-an-email",
		}, "corr-42", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires a correlation id", func() {
		subdomain, _ := ParseSubdomain("north-ridge")
		_, err := Register(id.NewTenantID(), subdomain, "North Ridge High", Contact{
			AdminName:  "Robin Dean",
			AdminEmail: "robin@northridge.example",
		}, "", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *TenantSuite) TestStartProvisioning() {
	t := s.register()
	t.DrainEvents()

	s.Require().NoError(t.StartProvisioning(s.now))
	s.Equal(StatusProvisioning, t.Status)
	s.Equal("tenant_north_ridge", t.SchemaName)

	events := t.DrainEvents()
	s.Require().Len(events, 1)
	s.Equal(EventTypeTenantProvisioningStarted, events[0].EventType())
}

func (s *TenantSuite) TestActivate() {
	s.Run("activates from provisioning", func() {
		t := s.register()
		s.Require().NoError(t.StartProvisioning(s.now))
		t.DrainEvents()

		s.Require().NoError(t.Activate(s.now))
		s.Equal(StatusActive, t.Status)
		s.Require().NotNil(t.ActivatedAt)
		s.Equal(s.now, *t.ActivatedAt)
		s.Len(t.DrainEvents(), 1)
	})

	s.Run("is idempotent when already active", func() {
		t := s.register()
		s.Require().NoError(t.StartProvisioning(s.now))
		s.Require().NoError(t.Activate(s.now))
		t.DrainEvents()
		first := *t.ActivatedAt

		s.Require().NoError(t.Activate(s.now.Add(time.Hour)))
		s.Equal(first, *t.ActivatedAt, "repeat activation must not move the timestamp")
		s.Empty(t.DrainEvents(), "repeat activation must not emit")
	})

	s.Run("rejects activation from pending", func() {
		t := s.register()
		err := t.Activate(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *TenantSuite) TestSuspendAndReactivate() {
	t := s.register()
	s.Require().NoError(t.StartProvisioning(s.now))
	s.Require().NoError(t.Activate(s.now))
	t.DrainEvents()

	s.Require().NoError(t.Suspend("invoice overdue", s.now))
	s.Equal(StatusSuspended, t.Status)

	s.Require().NoError(t.Reactivate(s.now.Add(time.Hour)))
	s.Equal(StatusActive, t.Status)

	events := t.DrainEvents()
	s.Require().Len(events, 2)
	s.Equal(EventTypeTenantSuspended, events[0].EventType())
	s.Equal(EventTypeTenantActivated, events[1].EventType())
}

func (s *TenantSuite) TestTerminate() {
	t := s.register()
	s.Require().NoError(t.StartProvisioning(s.now))
	s.Require().NoError(t.Activate(s.now))
	t.DrainEvents()

	s.Require().NoError(t.Terminate("school closed", s.now))
	s.Equal(StatusTerminated, t.Status)

	err := t.Reactivate(s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *TenantSuite) TestFailureAndRetry() {
	t := s.register()
	s.Require().NoError(t.StartProvisioning(s.now))
	t.DrainEvents()

	s.Require().NoError(t.MarkProvisioningFailed("schema creation failed", s.now))
	s.Equal(StatusFailed, t.Status)

	s.Require().NoError(t.ResetForRetry("corr-43", s.now))
	s.Equal(StatusPending, t.Status)
	s.Equal("corr-43", t.CorrelationID)

	events := t.DrainEvents()
	s.Require().Len(events, 2)
	s.Equal(EventTypeTenantProvisioningFailed, events[0].EventType())
	s.Equal(EventTypeTenantRegistered, events[1].EventType())
	s.Equal("corr-43", events[1].EventCorrelationID())
}
