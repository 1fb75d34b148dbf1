package models

import (
	"strings"
	"time"

	dErrors "synergy/pkg/domain-errors"
)

// RegisterTenantRequest is the transport-level registration input. It
// decouples the HTTP layer from the aggregate constructor.
type RegisterTenantRequest struct {
	InstitutionName string `json:"institution_name"`
	Subdomain       string `json:"subdomain"`
	AdminName       string `json:"admin_name"`
	AdminEmail      string `json:"admin_email"`
	AdminPhone      string `json:"admin_phone,omitempty"`

	// IdempotencyKey is optional; when present, retried submissions with the
	// same key replay the original response instead of re-executing.
	IdempotencyKey string `json:"-"`
}

// Normalize trims whitespace and lowercases fields that are
// case-insensitive by contract.
func (r *RegisterTenantRequest) Normalize() {
	r.InstitutionName = strings.TrimSpace(r.InstitutionName)
	r.Subdomain = strings.ToLower(strings.TrimSpace(r.Subdomain))
	r.AdminName = strings.TrimSpace(r.AdminName)
	r.AdminEmail = strings.TrimSpace(r.AdminEmail)
	r.AdminPhone = strings.TrimSpace(r.AdminPhone)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
}

// Validate checks every field the aggregate constructor will also enforce,
// so the transport layer can reject early with field-level messages.
func (r *RegisterTenantRequest) Validate() error {
	if len(r.InstitutionName) < 2 || len(r.InstitutionName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "institution name must be 2-200 characters")
	}
	if _, err := ParseSubdomain(r.Subdomain); err != nil {
		return err
	}
	return Contact{AdminName: r.AdminName, AdminEmail: r.AdminEmail, AdminPhone: r.AdminPhone}.Validate()
}

// RegistrationResult is the registration response payload. It is also the
// document cached by the idempotency guard for byte-for-byte replay.
// TenantDetails pairs a tenant with derived, read-only view data.
type TenantDetails struct {
	Tenant          *Tenant
	FullDomain      string
	OnboardingState string
}

type RegistrationResult struct {
	TenantID        string    `json:"tenant_id"`
	Subdomain       string    `json:"subdomain"`
	InstitutionName string    `json:"institution_name"`
	FullDomain      string    `json:"full_domain"`
	Status          Status    `json:"status"`
	RegisteredAt    time.Time `json:"registered_at"`
	PollHint        string    `json:"poll_hint"`
}
