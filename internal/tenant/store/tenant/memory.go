package tenant

import (
	"context"
	"fmt"
	"sync"

	"synergy/internal/tenant/models"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/sentinel"
)

// InMemory is the map-backed tenant store used by unit tests and local
// development. Uniqueness is enforced under the store mutex, mirroring the
// database constraint.
type InMemory struct {
	mu          sync.Mutex
	tenants     map[id.TenantID]*models.Tenant
	bySubdomain map[models.Subdomain]id.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants:     make(map[id.TenantID]*models.Tenant),
		bySubdomain: make(map[models.Subdomain]id.TenantID),
	}
}

func (s *InMemory) CreateIfSubdomainAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.bySubdomain[t.Subdomain]; taken {
		return fmt.Errorf("subdomain %s: %w", t.Subdomain, sentinel.ErrAlreadyUsed)
	}
	s.tenants[t.ID] = clone(t)
	s.bySubdomain[t.Subdomain] = t.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(t), nil
}

func (s *InMemory) FindByIDForUpdate(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.FindByID(ctx, tenantID)
}

func (s *InMemory) FindBySubdomain(_ context.Context, subdomain models.Subdomain) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID, ok := s.bySubdomain[subdomain]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.tenants[tenantID]), nil
}

func (s *InMemory) Update(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.tenants[t.ID] = clone(t)
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tenants), nil
}

// clone stores a snapshot without the transient event buffer; pending events
// belong to the mutating operation, not the store.
func clone(t *models.Tenant) *models.Tenant {
	return models.Reconstitute(
		t.ID, t.Subdomain, t.InstitutionName, t.Contact,
		t.Status, t.RegisteredAt, t.ActivatedAt, t.SchemaName, t.CorrelationID,
	)
}
