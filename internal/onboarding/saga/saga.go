// Package saga drives the multi-step onboarding process from inbound
// provisioning signals.
//
// The state machine is an explicit transition table (state × signal → state,
// plus the side effect to invoke), evaluated by ordinary code. A signal is
// applied only when the saga is currently in the signal's expected source
// state; anything else is discarded, not errored, which makes correctness
// independent of at-least-once, duplicate, or reordered delivery.
package saga

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	onbmetrics "synergy/internal/onboarding/metrics"
	"synergy/internal/outbox"
	"synergy/internal/tenant/models"
	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/platform/tx"
	"synergy/pkg/requestcontext"
)

//go:generate mockgen -source=saga.go -destination=mocks/mocks.go -package=mocks

var tracer = otel.Tracer("synergy/onboarding/saga")

// StateStore persists per-tenant saga state.
type StateStore interface {
	// Create records a fresh saga instance; called in the registration
	// transaction. Replaces any terminal predecessor for retried tenants.
	Create(ctx context.Context, tenantID id.TenantID, state State, now time.Time) error

	// Get returns the current state, or sentinel.ErrNotFound.
	Get(ctx context.Context, tenantID id.TenantID) (State, error)

	// GetForUpdate locks the saga row for the enclosing transaction.
	GetForUpdate(ctx context.Context, tenantID id.TenantID) (State, error)

	// CompareAndSet advances from → to; sentinel.ErrInvalidState when the
	// row is no longer in the expected source state.
	CompareAndSet(ctx context.Context, tenantID id.TenantID, from, to State, now time.Time) error
}

// TenantStore is the slice of the tenant repository the saga mutates through.
type TenantStore interface {
	FindByIDForUpdate(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	Update(ctx context.Context, t *models.Tenant) error
}

// Gateway performs the side-effecting infrastructure operations. Both
// operations are idempotent: a second call for the same tenant is a no-op, so
// redelivered signals cannot double-provision.
type Gateway interface {
	ProvisionTenantDatabase(ctx context.Context, tenantID id.TenantID) error
	CreatePrimaryCampusSchema(ctx context.Context, tenantID id.TenantID, schemaName string) error
}

// AdminBootstrapper creates the tenant's initial administrator account.
// Idempotent per tenant.
type AdminBootstrapper interface {
	CreateBootstrapAccount(ctx context.Context, t *models.Tenant) error
}

// EventStager stages outbound events on the transactional outbox.
type EventStager interface {
	Publish(ctx context.Context, event outbox.Event, aggregateType string) error
}

const (
	aggregateTypeTenant     = "tenant"
	aggregateTypeOnboarding = "onboarding"
)

// transition is one row of the saga table: accept the signal only in from,
// invoke act, land in to, and stage the next signal (empty for none).
type transition struct {
	from State
	to   State
	next string
	act  func(o *Saga, ctx context.Context, t *models.Tenant, now time.Time) error
}

var transitions = map[string]transition{
	SignalSubscriptionActivated: {
		from: StateRegistered,
		to:   StateSubscriptionActive,
		next: SignalTenantProvisioned,
		act:  (*Saga).provisionDatabase,
	},
	SignalTenantProvisioned: {
		from: StateSubscriptionActive,
		to:   StateTenantProvisioned,
		next: SignalPrimaryCampusCreated,
		act:  (*Saga).createCampusSchema,
	},
	SignalPrimaryCampusCreated: {
		from: StateTenantProvisioned,
		to:   StatePrimaryCampusCreate,
		next: SignalAdminCreated,
		act:  (*Saga).createAdminAccount,
	},
	SignalAdminCreated: {
		from: StatePrimaryCampusCreate,
		to:   StateAdminCreated,
		next: SignalOnboardingFinalized,
	},
	SignalOnboardingFinalized: {
		from: StateAdminCreated,
		to:   StateActivated,
		act:  (*Saga).activateTenant,
	},
}

// Saga coordinates saga state, the tenant aggregate, infrastructure side
// effects, and outbound signals. Every accepted signal is handled in one
// atomic unit of work.
type Saga struct {
	states  StateStore
	tenants TenantStore
	gateway Gateway
	admins  AdminBootstrapper
	stager  EventStager
	runner  tx.Runner
	logger  *slog.Logger
	metrics *onbmetrics.Metrics
}

type Option func(o *Saga)

func WithMetrics(m *onbmetrics.Metrics) Option {
	return func(o *Saga) { o.metrics = m }
}

func New(states StateStore, tenants TenantStore, gateway Gateway, admins AdminBootstrapper, stager EventStager, runner tx.Runner, logger *slog.Logger, opts ...Option) *Saga {
	o := &Saga{
		states:  states,
		tenants: tenants,
		gateway: gateway,
		admins:  admins,
		stager:  stager,
		runner:  runner,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle applies one inbound signal. Signals carrying malformed tenant
// identifiers are rejected, not silently dropped; signals that do not match
// the current saga state are discarded without error.
func (o *Saga) Handle(ctx context.Context, sig Signal) error {
	tenantID, err := id.ParseTenantID(sig.TenantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "onboarding signal rejected")
	}
	ctx = requestcontext.WithCorrelationID(ctx, sig.CorrelationID)

	ctx, span := tracer.Start(ctx, "onboarding.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("signal.type", sig.Type),
		attribute.String("tenant.id", sig.TenantID),
	)

	if sig.Type == SignalFailure {
		return o.handleFailure(ctx, tenantID, sig)
	}

	tr, ok := transitions[sig.Type]
	if !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown onboarding signal %q", sig.Type)
	}

	return o.runner.RunInTx(ctx, func(txCtx context.Context) error {
		state, err := o.states.GetForUpdate(txCtx, tenantID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "no onboarding saga for tenant %s", tenantID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load saga state")
		}
		if state != tr.from {
			o.discard(txCtx, sig, state)
			return nil
		}

		t, err := o.tenants.FindByIDForUpdate(txCtx, tenantID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load tenant for saga step")
		}
		now := requestcontext.Now(txCtx)

		if tr.act != nil {
			if err := tr.act(o, txCtx, t, now); err != nil {
				return o.applyFailure(txCtx, tenantID, t, state, err.Error(), now)
			}
		}

		if err := o.states.CompareAndSet(txCtx, tenantID, tr.from, tr.to, now); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "saga advanced concurrently, signal will be re-evaluated")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "advance saga state")
		}

		if err := o.persistTenant(txCtx, t); err != nil {
			return err
		}
		if tr.next != "" {
			next := NewSignal(tr.next, tenantID, sig.CorrelationID, now)
			if err := o.stager.Publish(txCtx, next, aggregateTypeOnboarding); err != nil {
				return err
			}
		}

		o.logger.InfoContext(txCtx, "onboarding saga advanced",
			"tenant_id", tenantID,
			"signal", sig.Type,
			"from", state,
			"to", tr.to,
			"correlation_id", sig.CorrelationID,
		)
		if o.metrics != nil {
			o.metrics.SignalsAccepted.Inc()
			if tr.to == StateActivated {
				o.metrics.SagasActivated.Inc()
			}
		}
		return nil
	})
}

// handleFailure moves any non-terminal saga to FAILED and fails the tenant.
func (o *Saga) handleFailure(ctx context.Context, tenantID id.TenantID, sig Signal) error {
	return o.runner.RunInTx(ctx, func(txCtx context.Context) error {
		state, err := o.states.GetForUpdate(txCtx, tenantID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "no onboarding saga for tenant %s", tenantID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load saga state")
		}
		if state.IsTerminal() {
			o.discard(txCtx, sig, state)
			return nil
		}
		t, err := o.tenants.FindByIDForUpdate(txCtx, tenantID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load tenant for saga failure")
		}
		return o.applyFailure(txCtx, tenantID, t, state, sig.Reason, requestcontext.Now(txCtx))
	})
}

// applyFailure is the shared failure path: saga → FAILED, tenant → FAILED,
// events staged, all within the caller's transaction. The saga never retries
// on its own; recovery is a tenant-level ResetForRetry with a fresh saga.
func (o *Saga) applyFailure(ctx context.Context, tenantID id.TenantID, t *models.Tenant, from State, reason string, now time.Time) error {
	if err := o.states.CompareAndSet(ctx, tenantID, from, StateFailed, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "fail saga state")
	}
	if err := t.MarkProvisioningFailed(reason, now); err != nil {
		return err
	}
	if err := o.persistTenant(ctx, t); err != nil {
		return err
	}

	o.logger.ErrorContext(ctx, "onboarding saga failed",
		"tenant_id", tenantID,
		"from", from,
		"reason", reason,
	)
	if o.metrics != nil {
		o.metrics.SagasFailed.Inc()
	}
	return nil
}

func (o *Saga) persistTenant(ctx context.Context, t *models.Tenant) error {
	events := t.DrainEvents()
	if len(events) == 0 {
		return nil
	}
	if err := o.tenants.Update(ctx, t); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist tenant")
	}
	for _, event := range events {
		if err := o.stager.Publish(ctx, event, aggregateTypeTenant); err != nil {
			return err
		}
	}
	return nil
}

func (o *Saga) discard(ctx context.Context, sig Signal, state State) {
	o.logger.InfoContext(ctx, "onboarding signal discarded",
		"tenant_id", sig.TenantID,
		"signal", sig.Type,
		"saga_state", state,
	)
	if o.metrics != nil {
		o.metrics.SignalsDiscarded.Inc()
	}
}

// Side effects, one per transition. Failures surface as the Failure path.

func (o *Saga) provisionDatabase(ctx context.Context, t *models.Tenant, now time.Time) error {
	if err := t.StartProvisioning(now); err != nil {
		return err
	}
	return o.gateway.ProvisionTenantDatabase(ctx, t.ID)
}

func (o *Saga) createCampusSchema(ctx context.Context, t *models.Tenant, _ time.Time) error {
	return o.gateway.CreatePrimaryCampusSchema(ctx, t.ID, t.SchemaName)
}

func (o *Saga) createAdminAccount(ctx context.Context, t *models.Tenant, _ time.Time) error {
	return o.admins.CreateBootstrapAccount(ctx, t)
}

func (o *Saga) activateTenant(_ context.Context, t *models.Tenant, now time.Time) error {
	return t.Activate(now)
}
