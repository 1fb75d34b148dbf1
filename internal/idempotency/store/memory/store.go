// Package memory is the in-memory idempotency store used by unit tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"synergy/internal/idempotency"
	"synergy/pkg/platform/sentinel"
)

type Store struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func New() *Store {
	return &Store{records: make(map[string]*idempotency.Record)}
}

func (s *Store) Get(_ context.Context, key string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *Store) Insert(_ context.Context, rec *idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Key]; exists {
		return fmt.Errorf("idempotency key %s: %w", rec.Key, sentinel.ErrAlreadyUsed)
	}
	clone := *rec
	s.records[rec.Key] = &clone
	return nil
}

func (s *Store) Complete(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Status != idempotency.StatusInProgress {
		return sentinel.ErrNotFound
	}
	rec.Status = idempotency.StatusComplete
	rec.ResponsePayload = append([]byte(nil), payload...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, key)
	return nil
}
