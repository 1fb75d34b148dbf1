package provisioning

import (
	"context"
	"sync"

	id "synergy/pkg/domain"
)

// Fake records provisioning calls for tests. Errors can be injected per
// operation to exercise failure paths.
type Fake struct {
	mu        sync.Mutex
	databases map[id.TenantID]bool
	schemas   map[id.TenantID]string

	ProvisionErr error
	SchemaErr    error
	DropErr      error
}

func NewFake() *Fake {
	return &Fake{
		databases: make(map[id.TenantID]bool),
		schemas:   make(map[id.TenantID]string),
	}
}

func (f *Fake) ProvisionTenantDatabase(_ context.Context, tenantID id.TenantID) error {
	if f.ProvisionErr != nil {
		return f.ProvisionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.databases[tenantID] = true
	return nil
}

func (f *Fake) CreatePrimaryCampusSchema(_ context.Context, tenantID id.TenantID, schemaName string) error {
	if f.SchemaErr != nil {
		return f.SchemaErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[tenantID] = schemaName
	return nil
}

func (f *Fake) DropTenantDatabase(_ context.Context, tenantID id.TenantID) error {
	if f.DropErr != nil {
		return f.DropErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.databases, tenantID)
	delete(f.schemas, tenantID)
	return nil
}

func (f *Fake) HasDatabase(tenantID id.TenantID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.databases[tenantID]
}

func (f *Fake) SchemaFor(tenantID id.TenantID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schemas[tenantID]
}
