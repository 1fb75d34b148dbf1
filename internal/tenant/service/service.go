// Package service orchestrates tenant registration and lifecycle management.
//
// Registration is the front door of onboarding: it claims the idempotency
// key, creates the tenant and its saga row, and stages the registered event,
// all inside one transaction. Everything after that is driven asynchronously
// by the saga.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"synergy/internal/audit"
	"synergy/internal/idempotency"
	"synergy/internal/onboarding/saga"
	"synergy/internal/outbox"
	"synergy/internal/tenant/metrics"
	"synergy/internal/tenant/models"
	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/platform/tx"
	"synergy/pkg/requestcontext"
)

type TenantStore interface {
	CreateIfSubdomainAvailable(ctx context.Context, t *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByIDForUpdate(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain models.Subdomain) (*models.Tenant, error)
	Update(ctx context.Context, t *models.Tenant) error
	Count(ctx context.Context) (int, error)
}

type SagaStore interface {
	Create(ctx context.Context, tenantID id.TenantID, state saga.State, now time.Time) error
	Get(ctx context.Context, tenantID id.TenantID) (saga.State, error)
}

type EventStager interface {
	PublishAll(ctx context.Context, events []outbox.Event, aggregateType string) error
}

const aggregateTypeTenant = "tenant"

// Service orchestrates tenant registration and lifecycle operations.
type Service struct {
	tenants      TenantStore
	sagas        SagaStore
	guard        *idempotency.Guard
	stager       EventStager
	runner       tx.Runner
	trail        *audit.Trail
	domainSuffix string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithDomainSuffix(suffix string) Option {
	return func(s *Service) { s.domainSuffix = suffix }
}

// WithAuditTrail records operator lifecycle actions on the given trail,
// committed in the same transaction as the state change.
func WithAuditTrail(trail *audit.Trail) Option {
	return func(s *Service) { s.trail = trail }
}

// New constructs a Service.
func New(tenants TenantStore, sagas SagaStore, guard *idempotency.Guard, stager EventStager, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		tenants:      tenants,
		sagas:        sagas,
		guard:        guard,
		stager:       stager,
		runner:       runner,
		domainSuffix: ".zappschool.com",
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTenant handles a registration submission. With an idempotency key,
// a replayed submission returns the original result without re-executing;
// a concurrent duplicate gets a conflict.
func (s *Service) RegisterTenant(ctx context.Context, req models.RegisterTenantRequest) (*models.RegistrationResult, error) {
	start := time.Now()
	defer s.observeRegister(start)

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		check, err := s.guard.Check(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		switch check.Outcome {
		case idempotency.OutcomeComplete:
			var cached models.RegistrationResult
			if err := json.Unmarshal(check.Payload, &cached); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cached registration result is unreadable")
			}
			if s.metrics != nil {
				s.metrics.RegistrationReplays.Inc()
			}
			s.logger.InfoContext(ctx, "registration replayed from idempotency cache",
				"idempotency_key", req.IdempotencyKey,
				"tenant_id", cached.TenantID,
			)
			return &cached, nil
		case idempotency.OutcomeInProgress:
			if s.metrics != nil {
				s.metrics.RegistrationConflict.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "a registration with this idempotency key is already in progress")
		}
		if err := s.guard.Begin(ctx, req.IdempotencyKey, "tenant.register"); err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
				s.metrics.RegistrationConflict.Inc()
			}
			return nil, err
		}
	}

	subdomain, err := models.ParseSubdomain(req.Subdomain)
	if err != nil {
		return nil, s.releaseClaim(ctx, req.IdempotencyKey, err)
	}
	correlationID := requestcontext.CorrelationID(ctx)
	if correlationID == requestcontext.NoCorrelation {
		correlationID = requestcontext.NewCorrelationID()
	}
	now := requestcontext.Now(ctx)

	t, err := models.Register(id.NewTenantID(), subdomain, req.InstitutionName, models.Contact{
		AdminName:  req.AdminName,
		AdminEmail: req.AdminEmail,
		AdminPhone: req.AdminPhone,
	}, correlationID, now)
	if err != nil {
		return nil, s.releaseClaim(ctx, req.IdempotencyKey, err)
	}

	result := &models.RegistrationResult{
		TenantID:        t.ID.String(),
		Subdomain:       t.Subdomain.String(),
		InstitutionName: t.InstitutionName,
		FullDomain:      t.Subdomain.FullDomain(s.domainSuffix),
		Status:          t.Status,
		RegisteredAt:    t.RegisteredAt,
		PollHint:        "/tenants/" + t.ID.String(),
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tenants.CreateIfSubdomainAvailable(txCtx, t); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Newf(dErrors.CodeConflict, "subdomain %q is already taken", t.Subdomain)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "persisting tenant")
		}
		if err := s.sagas.Create(txCtx, t.ID, saga.StateRegistered, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "creating onboarding saga")
		}
		if err := s.stager.PublishAll(txCtx, eventList(t.DrainEvents()), aggregateTypeTenant); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			payload, err := json.Marshal(result)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "encoding registration result")
			}
			if err := s.guard.Complete(txCtx, req.IdempotencyKey, payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.releaseClaim(ctx, req.IdempotencyKey, err)
	}

	if s.metrics != nil {
		s.metrics.TenantsRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "tenant registered",
		"tenant_id", t.ID,
		"subdomain", t.Subdomain,
		"correlation_id", correlationID,
	)
	return result, nil
}

// releaseClaim frees the idempotency claim after a failed registration so a
// retry with the same key is treated as fresh instead of conflicting until
// the claim expires. The caller always sees the original failure; a release
// error is only logged.
func (s *Service) releaseClaim(ctx context.Context, key string, cause error) error {
	if key == "" {
		return cause
	}
	if err := s.guard.Release(ctx, key); err != nil {
		s.logger.ErrorContext(ctx, "releasing idempotency claim",
			"idempotency_key", key,
			"error", err,
		)
	}
	return cause
}

// GetTenant fetches a tenant with its current onboarding state.
func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.TenantDetails, error) {
	t, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading tenant")
	}
	details := &models.TenantDetails{
		Tenant:     t,
		FullDomain: t.Subdomain.FullDomain(s.domainSuffix),
	}
	if state, err := s.sagas.Get(ctx, tenantID); err == nil {
		details.OnboardingState = string(state)
	}
	return details, nil
}

// GetBySubdomain resolves a tenant by its subdomain.
func (s *Service) GetBySubdomain(ctx context.Context, raw string) (*models.Tenant, error) {
	subdomain, err := models.ParseSubdomain(raw)
	if err != nil {
		return nil, err
	}
	t, err := s.tenants.FindBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading tenant")
	}
	return t, nil
}

// Suspend takes an active tenant out of service.
func (s *Service) Suspend(ctx context.Context, tenantID id.TenantID, reason string) error {
	return s.mutate(ctx, tenantID, audit.ActionTenantSuspended, reason, func(t *models.Tenant, now time.Time) error {
		return t.Suspend(reason, now)
	})
}

// Reactivate returns a suspended tenant to service.
func (s *Service) Reactivate(ctx context.Context, tenantID id.TenantID) error {
	return s.mutate(ctx, tenantID, audit.ActionTenantReactivated, "", func(t *models.Tenant, now time.Time) error {
		return t.Reactivate(now)
	})
}

// Terminate permanently retires a tenant.
func (s *Service) Terminate(ctx context.Context, tenantID id.TenantID, reason string) error {
	return s.mutate(ctx, tenantID, audit.ActionTenantTerminated, reason, func(t *models.Tenant, now time.Time) error {
		return t.Terminate(reason, now)
	})
}

// AuditTrail returns the operator actions recorded against a tenant.
func (s *Service) AuditTrail(ctx context.Context, tenantID id.TenantID) ([]audit.Entry, error) {
	if s.trail == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit trail is not enabled")
	}
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading tenant")
	}
	entries, err := s.trail.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing audit trail")
	}
	return entries, nil
}

// RetryOnboarding re-enters a failed tenant into the pipeline under a fresh
// correlation id and a fresh saga.
func (s *Service) RetryOnboarding(ctx context.Context, tenantID id.TenantID) error {
	return s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.loadForUpdate(txCtx, tenantID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(txCtx)
		if err := t.ResetForRetry(requestcontext.NewCorrelationID(), now); err != nil {
			return err
		}
		if err := s.sagas.Create(txCtx, t.ID, saga.StateRegistered, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "resetting onboarding saga")
		}
		if err := s.tenants.Update(txCtx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persisting tenant")
		}
		if err := s.stager.PublishAll(txCtx, eventList(t.DrainEvents()), aggregateTypeTenant); err != nil {
			return err
		}
		if err := s.recordAction(txCtx, tenantID, audit.ActionOnboardingRetried, ""); err != nil {
			return err
		}
		s.logger.InfoContext(txCtx, "tenant onboarding retried",
			"tenant_id", t.ID,
			"correlation_id", t.CorrelationID,
		)
		return nil
	})
}

// mutate runs a lifecycle change in its own unit of work: lock, apply, persist,
// stage events.
func (s *Service) mutate(ctx context.Context, tenantID id.TenantID, action, reason string, apply func(t *models.Tenant, now time.Time) error) error {
	return s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.loadForUpdate(txCtx, tenantID)
		if err != nil {
			return err
		}
		if err := apply(t, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.tenants.Update(txCtx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persisting tenant")
		}
		if err := s.stager.PublishAll(txCtx, eventList(t.DrainEvents()), aggregateTypeTenant); err != nil {
			return err
		}
		return s.recordAction(txCtx, tenantID, action, reason)
	})
}

func (s *Service) recordAction(ctx context.Context, tenantID id.TenantID, action, reason string) error {
	if s.trail == nil {
		return nil
	}
	err := s.trail.Record(ctx, audit.Entry{TenantID: tenantID, Action: action, Reason: reason})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "recording operator action")
	}
	return nil
}

func (s *Service) loadForUpdate(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	t, err := s.tenants.FindByIDForUpdate(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading tenant")
	}
	return t, nil
}

func (s *Service) observeRegister(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRegister(start)
	}
}

func eventList(events []models.DomainEvent) []outbox.Event {
	out := make([]outbox.Event, len(events))
	for i, event := range events {
		out[i] = event
	}
	return out
}
