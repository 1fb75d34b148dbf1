// Package memory keeps audit entries in process memory for unit tests.
package memory

import (
	"context"
	"sync"

	"synergy/internal/audit"
	id "synergy/pkg/domain"
)

type InMemory struct {
	mu      sync.RWMutex
	entries map[id.TenantID][]audit.Entry
}

func New() *InMemory {
	return &InMemory{entries: make(map[id.TenantID][]audit.Entry)}
}

func (s *InMemory) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.TenantID] = append(s.entries[entry.TenantID], entry)
	return nil
}

func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries[tenantID]...), nil
}
