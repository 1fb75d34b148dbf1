package models

import (
	"time"

	id "synergy/pkg/domain"
)

// Event type tags are versioned. Bump the suffix on breaking payload changes
// and keep consumers reading both versions during rollout.
const (
	EventTypeTenantRegistered          = "tenant.registered.v1"
	EventTypeTenantProvisioningStarted = "tenant.provisioning.started.v1"
	EventTypeTenantActivated           = "tenant.activated.v1"
	EventTypeTenantProvisioningFailed  = "tenant.provisioning.failed.v1"
	EventTypeTenantSuspended           = "tenant.suspended.v1"
	EventTypeTenantTerminated          = "tenant.terminated.v1"
)

// DomainEvent is the contract the outbox needs from every event: a globally
// unique id (the outbox dedup key), a versioned type tag, and the aggregate
// and correlation ids to stamp on the staged message.
type DomainEvent interface {
	EventID() id.EventID
	EventType() string
	AggregateID() string
	EventCorrelationID() string
}

// Envelope carries the fields every domain event shares. Event structs embed
// it so the serialized payload is self-contained: a consumer never needs a
// secondary lookup to act on the event.
type Envelope struct {
	ID            id.EventID `json:"eventId"`
	Type          string     `json:"eventType"`
	Aggregate     string     `json:"aggregateId"`
	Correlation   string     `json:"correlationId"`
	SchemaVersion int        `json:"schemaVersion"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

func (e Envelope) EventID() id.EventID        { return e.ID }
func (e Envelope) EventType() string          { return e.Type }
func (e Envelope) AggregateID() string        { return e.Aggregate }
func (e Envelope) EventCorrelationID() string { return e.Correlation }

func newEnvelope(eventType string, tenantID id.TenantID, correlationID string, occurredAt time.Time) Envelope {
	return Envelope{
		ID:            id.NewEventID(),
		Type:          eventType,
		Aggregate:     tenantID.String(),
		Correlation:   correlationID,
		SchemaVersion: 1,
		OccurredAt:    occurredAt.UTC(),
	}
}

// TenantRegistered is emitted when a tenant is created (status PENDING) and
// again when a failed tenant re-enters the pipeline via ResetForRetry.
type TenantRegistered struct {
	Envelope
	Subdomain       string `json:"subdomain"`
	InstitutionName string `json:"institutionName"`
	AdminEmail      string `json:"adminEmail"`
	AdminName       string `json:"adminName"`
}

// TenantProvisioningStarted is emitted on PENDING → PROVISIONING and carries
// the schema name derived from the subdomain.
type TenantProvisioningStarted struct {
	Envelope
	Subdomain  string `json:"subdomain"`
	SchemaName string `json:"schemaName"`
}

// TenantActivated is emitted on PROVISIONING → ACTIVE and SUSPENDED → ACTIVE.
type TenantActivated struct {
	Envelope
	Subdomain  string `json:"subdomain"`
	SchemaName string `json:"schemaName"`
	AdminEmail string `json:"adminEmail"`
}

// TenantProvisioningFailed is emitted on PROVISIONING → FAILED with the
// reason captured from the failing infrastructure step.
type TenantProvisioningFailed struct {
	Envelope
	Reason string `json:"reason"`
}

// TenantSuspended is emitted on ACTIVE → SUSPENDED.
type TenantSuspended struct {
	Envelope
	Subdomain string `json:"subdomain"`
	Reason    string `json:"reason"`
}

// TenantTerminated is emitted when an active or suspended tenant is
// terminated. Terminal: consumers should release the tenant's resources.
type TenantTerminated struct {
	Envelope
	Subdomain string `json:"subdomain"`
	Reason    string `json:"reason"`
}
