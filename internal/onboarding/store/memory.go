package store

import (
	"context"
	"sync"
	"time"

	"synergy/internal/onboarding/saga"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/sentinel"
)

// InMemory mirrors the Postgres store's semantics for tests.
type InMemory struct {
	mu     sync.Mutex
	states map[id.TenantID]saga.State
}

func NewInMemory() *InMemory {
	return &InMemory{states: make(map[id.TenantID]saga.State)}
}

func (s *InMemory) Create(_ context.Context, tenantID id.TenantID, state saga.State, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[tenantID] = state
	return nil
}

func (s *InMemory) Get(_ context.Context, tenantID id.TenantID) (saga.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[tenantID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return state, nil
}

func (s *InMemory) GetForUpdate(ctx context.Context, tenantID id.TenantID) (saga.State, error) {
	return s.Get(ctx, tenantID)
}

func (s *InMemory) CompareAndSet(_ context.Context, tenantID id.TenantID, from, to saga.State, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[tenantID]
	if !ok || state != from {
		return sentinel.ErrInvalidState
	}
	s.states[tenantID] = to
	return nil
}
