// Package handler exposes the tenant HTTP surface.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"synergy/internal/tenant/models"
	"synergy/internal/tenant/service"
	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
	"synergy/pkg/platform/httputil"
)

// Handler wires the tenant service to chi routes.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the public tenant routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants/register", h.registerTenant)
	r.Get("/tenants/{tenantID}", h.getTenant)
	r.Get("/tenants/by-subdomain/{subdomain}", h.getBySubdomain)
}

// RegisterAdmin mounts the operator lifecycle routes. The caller is expected
// to wrap these with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/tenants/{tenantID}/suspend", h.suspendTenant)
	r.Post("/admin/tenants/{tenantID}/reactivate", h.reactivateTenant)
	r.Post("/admin/tenants/{tenantID}/terminate", h.terminateTenant)
	r.Post("/admin/tenants/{tenantID}/retry", h.retryOnboarding)
	r.Get("/admin/tenants/{tenantID}/audit", h.auditTrail)
}

func (h *Handler) registerTenant(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is not valid JSON"))
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	result, err := h.svc.RegisterTenant(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, result)
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	details, err := h.svc.GetTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenantView(details))
}

func (h *Handler) getBySubdomain(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetBySubdomain(r.Context(), chi.URLParam(r, "subdomain"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenantView(&models.TenantDetails{Tenant: t}))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) suspendTenant(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(tenantID id.TenantID, reason string) error {
		return h.svc.Suspend(r.Context(), tenantID, reason)
	})
}

func (h *Handler) reactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(tenantID id.TenantID, _ string) error {
		return h.svc.Reactivate(r.Context(), tenantID)
	})
}

func (h *Handler) terminateTenant(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(tenantID id.TenantID, reason string) error {
		return h.svc.Terminate(r.Context(), tenantID, reason)
	})
}

func (h *Handler) retryOnboarding(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(tenantID id.TenantID, _ string) error {
		return h.svc.RetryOnboarding(r.Context(), tenantID)
	})
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(tenantID id.TenantID, reason string) error) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req reasonRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is not valid JSON"))
			return
		}
	}
	if err := op(tenantID, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.svc.AuditTrail(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]auditEntryResponse, len(entries))
	for i, entry := range entries {
		views[i] = auditEntryResponse{
			Action:        entry.Action,
			Reason:        entry.Reason,
			CorrelationID: entry.CorrelationID,
			OccurredAt:    entry.OccurredAt,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, auditTrailResponse{TenantID: tenantID.String(), Entries: views})
}

type auditTrailResponse struct {
	TenantID string               `json:"tenant_id"`
	Entries  []auditEntryResponse `json:"entries"`
}

type auditEntryResponse struct {
	Action        string    `json:"action"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type tenantResponse struct {
	TenantID        string     `json:"tenant_id"`
	Subdomain       string     `json:"subdomain"`
	InstitutionName string     `json:"institution_name"`
	Status          string     `json:"status"`
	FullDomain      string     `json:"full_domain,omitempty"`
	SchemaName      string     `json:"schema_name,omitempty"`
	OnboardingState string     `json:"onboarding_state,omitempty"`
	RegisteredAt    time.Time  `json:"registered_at"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
}

func tenantView(details *models.TenantDetails) tenantResponse {
	t := details.Tenant
	return tenantResponse{
		TenantID:        t.ID.String(),
		Subdomain:       t.Subdomain.String(),
		InstitutionName: t.InstitutionName,
		Status:          string(t.Status),
		FullDomain:      details.FullDomain,
		SchemaName:      t.SchemaName,
		OnboardingState: details.OnboardingState,
		RegisteredAt:    t.RegisteredAt,
		ActivatedAt:     t.ActivatedAt,
	}
}
