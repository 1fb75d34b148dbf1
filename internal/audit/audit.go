// Package audit records operator actions against tenants. The trail is
// append-only and uses the storage layer for persistence so tests can swap
// sinks easily.
package audit

import (
	"context"
	"log/slog"
	"time"

	id "synergy/pkg/domain"
	"synergy/pkg/requestcontext"
)

// Operator actions captured on the trail.
const (
	ActionTenantSuspended   = "tenant_suspended"
	ActionTenantReactivated = "tenant_reactivated"
	ActionTenantTerminated  = "tenant_terminated"
	ActionOnboardingRetried = "onboarding_retried"
)

// Entry is one recorded operator action.
type Entry struct {
	ID            id.EventID
	TenantID      id.TenantID
	Action        string
	Reason        string
	CorrelationID string
	OccurredAt    time.Time
}

// Store persists trail entries. Postgres enlists in the caller's transaction
// so the entry commits atomically with the lifecycle change it describes.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Entry, error)
}

// Trail records and reads back operator actions.
type Trail struct {
	store  Store
	logger *slog.Logger
}

func NewTrail(store Store, logger *slog.Logger) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{store: store, logger: logger}
}

// Record appends an entry, filling id, timestamp, and correlation id from
// the request context when unset.
func (t *Trail) Record(ctx context.Context, entry Entry) error {
	if entry.ID.IsNil() {
		entry.ID = id.NewEventID()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = requestcontext.Now(ctx)
	}
	if entry.CorrelationID == "" {
		entry.CorrelationID = requestcontext.CorrelationID(ctx)
	}
	if err := t.store.Append(ctx, entry); err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "operator action recorded",
		"tenant_id", entry.TenantID,
		"action", entry.Action,
	)
	return nil
}

// ListByTenant returns a tenant's trail, oldest first.
func (t *Trail) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Entry, error) {
	return t.store.ListByTenant(ctx, tenantID)
}
