// Package memory provides the in-memory admin account store used by tests.
package memory

import (
	"context"
	"sync"

	"synergy/internal/adminaccount"
	id "synergy/pkg/domain"
	"synergy/pkg/platform/sentinel"
)

type Store struct {
	mu       sync.Mutex
	byTenant map[id.TenantID]adminaccount.Account
}

func New() *Store {
	return &Store{byTenant: make(map[id.TenantID]adminaccount.Account)}
}

func (s *Store) InsertBootstrap(_ context.Context, account adminaccount.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTenant[account.TenantID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.byTenant[account.TenantID] = account
	return nil
}

func (s *Store) FindByTenant(_ context.Context, tenantID id.TenantID) (*adminaccount.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byTenant[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &account, nil
}
