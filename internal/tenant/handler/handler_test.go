package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"synergy/internal/audit"
	auditmemory "synergy/internal/audit/store/memory"
	"synergy/internal/idempotency"
	idemmemory "synergy/internal/idempotency/store/memory"
	sagastore "synergy/internal/onboarding/store"
	"synergy/internal/outbox"
	outboxmemory "synergy/internal/outbox/store/memory"
	"synergy/internal/tenant/handler"
	"synergy/internal/tenant/models"
	"synergy/internal/tenant/service"
	tenantstore "synergy/internal/tenant/store/tenant"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/middleware/admin"
	"synergy/pkg/platform/tx"
)

const testAdminToken = "test-admin-token"

type HandlerSuite struct {
	suite.Suite
	tenants *tenantstore.InMemory
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.tenants = tenantstore.NewInMemory()
	svc := service.New(
		s.tenants,
		sagastore.NewInMemory(),
		idempotency.NewGuard(idemmemory.New(), time.Hour),
		outbox.NewPublisher(outboxmemory.New(), logger),
		tx.NewNopRunner(),
		service.WithLogger(logger),
		service.WithAuditTrail(audit.NewTrail(auditmemory.New(), logger)),
	)
	h := handler.New(svc, logger)

	r := chi.NewRouter()
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(testAdminToken, logger))
		h.RegisterAdmin(r)
	})
	s.router = r
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) registerBody() string {
	return `{
		"institution_name": "Lakeview Academy",
		"subdomain": "lakeview",
		"admin_name": "Jules Warden",
		"admin_email": "jules@lakeview.example"
	}`
}

func (s *HandlerSuite) registerTenant() string {
	req := httptest.NewRequest(http.MethodPost, "/tenants/register", strings.NewReader(s.registerBody()))
	rec := s.do(req)
	s.Require().Equal(http.StatusAccepted, rec.Code)

	var result models.RegistrationResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	return result.TenantID
}

func (s *HandlerSuite) TestRegisterTenant() {
	s.Run("accepts a valid registration", func() {
		req := httptest.NewRequest(http.MethodPost, "/tenants/register", strings.NewReader(s.registerBody()))
		rec := s.do(req)
		s.Require().Equal(http.StatusAccepted, rec.Code)
		s.Equal("application/json", rec.Header().Get("Content-Type"))

		var result models.RegistrationResult
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
		s.NotEmpty(result.TenantID)
		s.Equal("lakeview", result.Subdomain)
		s.Equal("lakeview.zappschool.com", result.FullDomain)
		s.Equal("/tenants/"+result.TenantID, result.PollHint)
	})

	s.Run("replays with the same idempotency key", func() {
		body := `{
			"institution_name": "Hillcrest School",
			"subdomain": "hillcrest",
			"admin_name": "Sam Lee",
			"admin_email": "sam@hillcrest.example"
		}`
		first := httptest.NewRequest(http.MethodPost, "/tenants/register", strings.NewReader(body))
		first.Header.Set("Idempotency-Key", "reg-key-1")
		firstRec := s.do(first)
		s.Require().Equal(http.StatusAccepted, firstRec.Code)

		second := httptest.NewRequest(http.MethodPost, "/tenants/register", strings.NewReader(body))
		second.Header.Set("Idempotency-Key", "reg-key-1")
		secondRec := s.do(second)
		s.Require().Equal(http.StatusAccepted, secondRec.Code)
		s.JSONEq(firstRec.Body.String(), secondRec.Body.String())
	})

	s.Run("rejects a duplicate subdomain", func() {
		req := httptest.NewRequest(http.MethodPost, "/tenants/register", strings.NewReader(s.registerBody()))
		rec := s.do(req)
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), "conflict")
	})

	s.Run("rejects invalid input", func() {
		body := `{"institution_name": "X", "subdomain": "x", "admin_name": "", "admin_email": ""}`
		req := httptest.NewRequest(http.MethodPost, "/tenants/register", strings.NewReader(body))
		rec := s.do(req)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "validation_failed")
	})

	s.Run("rejects malformed JSON", func() {
		req := httptest.NewRequest(http.MethodPost, "/tenants/register", strings.NewReader("{not json"))
		rec := s.do(req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestGetTenant() {
	tenantID := s.registerTenant()

	s.Run("returns tenant details", func() {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/tenants/"+tenantID, nil))
		s.Require().Equal(http.StatusOK, rec.Code)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(tenantID, body["tenant_id"])
		s.Equal("lakeview", body["subdomain"])
		s.Equal(string(models.StatusPending), body["status"])
		s.Equal("REGISTERED", body["onboarding_state"])
	})

	s.Run("resolves by subdomain", func() {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/tenants/by-subdomain/lakeview", nil))
		s.Require().Equal(http.StatusOK, rec.Code)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(tenantID, body["tenant_id"])
	})

	s.Run("unknown tenant is 404", func() {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/tenants/"+id.NewTenantID().String(), nil))
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed tenant id is 400", func() {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/tenants/not-a-uuid", nil))
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestAdminRoutes() {
	tenantID := s.registerTenant()
	s.activateTenant(tenantID)

	s.Run("rejects requests without a token", func() {
		req := httptest.NewRequest(http.MethodPost, "/admin/tenants/"+tenantID+"/suspend", nil)
		rec := s.do(req)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("rejects requests with a wrong token", func() {
		req := httptest.NewRequest(http.MethodPost, "/admin/tenants/"+tenantID+"/suspend", nil)
		req.Header.Set("X-Admin-Token", "wrong")
		rec := s.do(req)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("suspend and reactivate", func() {
		rec := s.do(s.adminRequest(http.MethodPost, "/admin/tenants/"+tenantID+"/suspend", `{"reason":"invoice overdue"}`))
		s.Require().Equal(http.StatusNoContent, rec.Code)
		s.Equal(string(models.StatusSuspended), s.tenantStatus(tenantID))

		rec = s.do(s.adminRequest(http.MethodPost, "/admin/tenants/"+tenantID+"/reactivate", ""))
		s.Require().Equal(http.StatusNoContent, rec.Code)
		s.Equal(string(models.StatusActive), s.tenantStatus(tenantID))
	})

	s.Run("illegal transition is 409", func() {
		rec := s.do(s.adminRequest(http.MethodPost, "/admin/tenants/"+tenantID+"/reactivate", ""))
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), "invalid_state")
	})

	s.Run("terminate", func() {
		rec := s.do(s.adminRequest(http.MethodPost, "/admin/tenants/"+tenantID+"/terminate", `{"reason":"contract ended"}`))
		s.Require().Equal(http.StatusNoContent, rec.Code)
		s.Equal(string(models.StatusTerminated), s.tenantStatus(tenantID))
	})

	s.Run("audit trail lists the actions", func() {
		rec := s.do(s.adminRequest(http.MethodGet, "/admin/tenants/"+tenantID+"/audit", ""))
		s.Require().Equal(http.StatusOK, rec.Code)

		var trail struct {
			TenantID string `json:"tenant_id"`
			Entries  []struct {
				Action string `json:"action"`
				Reason string `json:"reason"`
			} `json:"entries"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &trail))
		s.Equal(tenantID, trail.TenantID)
		s.Require().Len(trail.Entries, 3)
		s.Equal("tenant_suspended", trail.Entries[0].Action)
		s.Equal("invoice overdue", trail.Entries[0].Reason)
		s.Equal("tenant_reactivated", trail.Entries[1].Action)
		s.Equal("tenant_terminated", trail.Entries[2].Action)
	})

	s.Run("audit trail for an unknown tenant is 404", func() {
		rec := s.do(s.adminRequest(http.MethodGet, "/admin/tenants/"+id.NewTenantID().String()+"/audit", ""))
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) adminRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("X-Admin-Token", testAdminToken)
	return req
}

func (s *HandlerSuite) activateTenant(tenantID string) {
	parsed, err := id.ParseTenantID(tenantID)
	s.Require().NoError(err)
	t, err := s.tenants.FindByID(context.Background(), parsed)
	s.Require().NoError(err)
	now := time.Now().UTC()
	s.Require().NoError(t.StartProvisioning(now))
	s.Require().NoError(t.Activate(now))
	t.DrainEvents()
	s.Require().NoError(s.tenants.Update(context.Background(), t))
}

func (s *HandlerSuite) tenantStatus(tenantID string) string {
	parsed, err := id.ParseTenantID(tenantID)
	s.Require().NoError(err)
	t, err := s.tenants.FindByID(context.Background(), parsed)
	s.Require().NoError(err)
	return string(t.Status)
}
