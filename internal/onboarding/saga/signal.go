package saga

import (
	"time"

	id "synergy/pkg/domain"
)

// Signal type tags. AdminCreated and OnboardingFinalized are deliberately
// distinct signals: the admin-creation step completing and the onboarding
// being finalized are different facts, each keyed to its own saga edge.
const (
	SignalSubscriptionActivated = "onboarding.subscription.activated.v1"
	SignalTenantProvisioned     = "onboarding.tenant.provisioned.v1"
	SignalPrimaryCampusCreated  = "onboarding.primary-campus.created.v1"
	SignalAdminCreated          = "onboarding.admin.created.v1"
	SignalOnboardingFinalized   = "onboarding.finalized.v1"
	SignalFailure               = "onboarding.failed.v1"
)

// Signal is one provisioning signal flowing through the saga. Inbound signals
// arrive from the billing topic or re-enter from the outbox; outbound ones
// are staged on the outbox by the transition that produced them.
//
// Signal satisfies the outbox staging contract (outbox.Event).
type Signal struct {
	ID            id.EventID `json:"eventId"`
	Type          string     `json:"eventType"`
	TenantID      string     `json:"aggregateId"`
	CorrelationID string     `json:"correlationId"`
	SchemaVersion int        `json:"schemaVersion"`
	OccurredAt    time.Time  `json:"occurredAt"`

	// Reason is set only on Failure signals.
	Reason string `json:"reason,omitempty"`
}

func (s Signal) EventID() id.EventID        { return s.ID }
func (s Signal) EventType() string          { return s.Type }
func (s Signal) AggregateID() string        { return s.TenantID }
func (s Signal) EventCorrelationID() string { return s.CorrelationID }

// NewSignal mints an outbound signal for a tenant.
func NewSignal(signalType string, tenantID id.TenantID, correlationID string, now time.Time) Signal {
	return Signal{
		ID:            id.NewEventID(),
		Type:          signalType,
		TenantID:      tenantID.String(),
		CorrelationID: correlationID,
		SchemaVersion: 1,
		OccurredAt:    now.UTC(),
	}
}

// NewFailureSignal mints a Failure signal with the captured reason.
func NewFailureSignal(tenantID id.TenantID, correlationID, reason string, now time.Time) Signal {
	sig := NewSignal(SignalFailure, tenantID, correlationID, now)
	sig.Reason = reason
	return sig
}
