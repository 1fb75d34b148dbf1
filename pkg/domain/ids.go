// Package domain defines strongly typed identifiers used across the platform.
//
// Using distinct UUID types per aggregate makes cross-wiring a compile error:
// a TenantID cannot be passed where an AdminAccountID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "synergy/pkg/domain-errors"
)

// TenantID identifies a tenant aggregate.
type TenantID uuid.UUID

// AdminAccountID identifies a tenant's bootstrap administrator account.
type AdminAccountID uuid.UUID

// EventID identifies a domain event. It doubles as the outbox dedup key.
type EventID uuid.UUID

func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id TenantID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id AdminAccountID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }

// NewTenantID mints a fresh tenant identifier.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewAdminAccountID mints a fresh admin account identifier.
func NewAdminAccountID() AdminAccountID { return AdminAccountID(uuid.New()) }

// NewEventID mints a fresh event identifier.
func NewEventID() EventID { return EventID(uuid.New()) }

// ParseTenantID parses an inbound tenant identifier at a trust boundary.
// Empty strings, malformed UUIDs, and the nil UUID are all rejected with
// CodeInvalidInput; inbound signals carrying such identifiers must be rejected
// rather than silently dropped.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant id")
	if err != nil {
		return TenantID{}, err
	}
	return TenantID(u), nil
}

// ParseEventID parses an inbound event identifier.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return u, nil
}
