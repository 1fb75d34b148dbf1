package models

import (
	"regexp"
	"strings"
	"time"

	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
)

// Contact holds the tenant's administrator contact details.
type Contact struct {
	AdminName  string `json:"admin_name"`
	AdminEmail string `json:"admin_email"`
	AdminPhone string `json:"admin_phone,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks contact fields: admin name non-empty and at most 100
// characters, email RFC-like, phone optional.
func (c Contact) Validate() error {
	name := strings.TrimSpace(c.AdminName)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "admin name is required")
	}
	if len(name) > 100 {
		return dErrors.New(dErrors.CodeValidation, "admin name must be 100 characters or less")
	}
	email := strings.TrimSpace(c.AdminEmail)
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "admin email is required")
	}
	if !emailPattern.MatchString(email) {
		return dErrors.Newf(dErrors.CodeValidation, "admin email is not valid: %q", c.AdminEmail)
	}
	return nil
}

// Tenant is the aggregate root for an onboarded institution.
//
// Invariants:
//   - Subdomain is globally unique across all tenants (enforced at the
//     repository level before construction)
//   - Status only changes through the transition table in status.go; there is
//     no setter
//   - ID and RegisteredAt never change after creation
//   - Every accepted mutation appends exactly one event to the pending buffer
//
// The pending-events buffer is transient: the persistence operation drains it
// (DrainEvents) and stages the events on the transactional outbox within the
// same unit of work as the aggregate's own write. After the drain the tenant
// no longer references those events.
type Tenant struct {
	ID              id.TenantID
	Subdomain       Subdomain
	InstitutionName string
	Contact         Contact

	Status       Status
	RegisteredAt time.Time
	ActivatedAt  *time.Time
	SchemaName   string

	CorrelationID string

	pending []DomainEvent
}

// Register constructs a new tenant in PENDING and buffers a TenantRegistered
// event. Subdomain uniqueness against other tenants is the caller's
// precondition; everything validatable on the input itself is validated here.
func Register(tenantID id.TenantID, subdomain Subdomain, institutionName string, contact Contact, correlationID string, now time.Time) (*Tenant, error) {
	institutionName = strings.TrimSpace(institutionName)
	if len(institutionName) < 2 || len(institutionName) > 200 {
		return nil, dErrors.New(dErrors.CodeValidation, "institution name must be 2-200 characters")
	}
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if correlationID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "correlation id is required")
	}

	t := &Tenant{
		ID:              tenantID,
		Subdomain:       subdomain,
		InstitutionName: institutionName,
		Contact:         contact,
		Status:          StatusPending,
		RegisteredAt:    now.UTC(),
		CorrelationID:   correlationID,
	}
	t.record(&TenantRegistered{
		Envelope:        newEnvelope(EventTypeTenantRegistered, t.ID, correlationID, now),
		Subdomain:       t.Subdomain.String(),
		InstitutionName: t.InstitutionName,
		AdminEmail:      t.Contact.AdminEmail,
		AdminName:       t.Contact.AdminName,
	})
	return t, nil
}

// Reconstitute rebuilds a tenant from persistence without raising events.
// Stores only.
func Reconstitute(tenantID id.TenantID, subdomain Subdomain, institutionName string, contact Contact,
	status Status, registeredAt time.Time, activatedAt *time.Time, schemaName, correlationID string) *Tenant {
	return &Tenant{
		ID:              tenantID,
		Subdomain:       subdomain,
		InstitutionName: institutionName,
		Contact:         contact,
		Status:          status,
		RegisteredAt:    registeredAt,
		ActivatedAt:     activatedAt,
		SchemaName:      schemaName,
		CorrelationID:   correlationID,
	}
}

// StartProvisioning transitions PENDING → PROVISIONING, derives the schema
// name from the subdomain, and buffers TenantProvisioningStarted.
func (t *Tenant) StartProvisioning(now time.Time) error {
	next, err := t.Status.TransitionTo(StatusProvisioning)
	if err != nil {
		return err
	}
	t.Status = next
	t.SchemaName = t.Subdomain.SchemaName()
	t.record(&TenantProvisioningStarted{
		Envelope:   newEnvelope(EventTypeTenantProvisioningStarted, t.ID, t.CorrelationID, now),
		Subdomain:  t.Subdomain.String(),
		SchemaName: t.SchemaName,
	})
	return nil
}

// Activate transitions PROVISIONING → ACTIVE, stamps ActivatedAt, and buffers
// TenantActivated.
//
// Idempotent: calling on an already-ACTIVE tenant is a no-op with no error and
// no new event. This supports at-least-once delivery from the outbox.
func (t *Tenant) Activate(now time.Time) error {
	if t.Status == StatusActive {
		return nil
	}
	if t.Status != StatusProvisioning {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot transition tenant from %s to %s", t.Status, StatusActive)
	}
	next, err := t.Status.TransitionTo(StatusActive)
	if err != nil {
		return err
	}
	t.Status = next
	at := now.UTC()
	t.ActivatedAt = &at
	t.record(&TenantActivated{
		Envelope:   newEnvelope(EventTypeTenantActivated, t.ID, t.CorrelationID, now),
		Subdomain:  t.Subdomain.String(),
		SchemaName: t.SchemaName,
		AdminEmail: t.Contact.AdminEmail,
	})
	return nil
}

// Suspend transitions ACTIVE → SUSPENDED and buffers TenantSuspended.
func (t *Tenant) Suspend(reason string, now time.Time) error {
	next, err := t.Status.TransitionTo(StatusSuspended)
	if err != nil {
		return err
	}
	t.Status = next
	t.record(&TenantSuspended{
		Envelope:  newEnvelope(EventTypeTenantSuspended, t.ID, t.CorrelationID, now),
		Subdomain: t.Subdomain.String(),
		Reason:    reason,
	})
	return nil
}

// Reactivate transitions SUSPENDED → ACTIVE and buffers TenantActivated.
func (t *Tenant) Reactivate(now time.Time) error {
	next, err := t.Status.TransitionTo(StatusActive)
	if err != nil {
		return err
	}
	t.Status = next
	at := now.UTC()
	t.ActivatedAt = &at
	t.record(&TenantActivated{
		Envelope:   newEnvelope(EventTypeTenantActivated, t.ID, t.CorrelationID, now),
		Subdomain:  t.Subdomain.String(),
		SchemaName: t.SchemaName,
		AdminEmail: t.Contact.AdminEmail,
	})
	return nil
}

// MarkProvisioningFailed transitions PROVISIONING → FAILED with the reason
// captured from the failing step, and buffers TenantProvisioningFailed.
func (t *Tenant) MarkProvisioningFailed(reason string, now time.Time) error {
	next, err := t.Status.TransitionTo(StatusFailed)
	if err != nil {
		return err
	}
	t.Status = next
	t.record(&TenantProvisioningFailed{
		Envelope: newEnvelope(EventTypeTenantProvisioningFailed, t.ID, t.CorrelationID, now),
		Reason:   reason,
	})
	return nil
}

// ResetForRetry transitions FAILED → PENDING so the tenant re-enters the
// onboarding pipeline under a new correlation id, and buffers a fresh
// TenantRegistered event.
func (t *Tenant) ResetForRetry(newCorrelationID string, now time.Time) error {
	if newCorrelationID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "new correlation id is required")
	}
	next, err := t.Status.TransitionTo(StatusPending)
	if err != nil {
		return err
	}
	t.Status = next
	t.CorrelationID = newCorrelationID
	t.record(&TenantRegistered{
		Envelope:        newEnvelope(EventTypeTenantRegistered, t.ID, newCorrelationID, now),
		Subdomain:       t.Subdomain.String(),
		InstitutionName: t.InstitutionName,
		AdminEmail:      t.Contact.AdminEmail,
		AdminName:       t.Contact.AdminName,
	})
	return nil
}

// Terminate transitions ACTIVE or SUSPENDED → TERMINATED and buffers
// TenantTerminated. Terminal: no transition leaves TERMINATED.
func (t *Tenant) Terminate(reason string, now time.Time) error {
	next, err := t.Status.TransitionTo(StatusTerminated)
	if err != nil {
		return err
	}
	t.Status = next
	t.record(&TenantTerminated{
		Envelope:  newEnvelope(EventTypeTenantTerminated, t.ID, t.CorrelationID, now),
		Subdomain: t.Subdomain.String(),
		Reason:    reason,
	})
	return nil
}

func (t *Tenant) CanAcceptRequests() bool { return t.Status.IsOperational() }

func (t *Tenant) record(event DomainEvent) {
	t.pending = append(t.pending, event)
}

// PendingEvents returns the buffered, not-yet-persisted events.
func (t *Tenant) PendingEvents() []DomainEvent {
	return t.pending
}

// DrainEvents returns the buffered events and clears the buffer. The caller
// must stage the returned events on the outbox within the same unit of work
// as the aggregate's persistence.
func (t *Tenant) DrainEvents() []DomainEvent {
	events := t.pending
	t.pending = nil
	return events
}
