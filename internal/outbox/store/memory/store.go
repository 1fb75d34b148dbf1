// Package memory is the in-memory outbox store used by unit tests and
// single-process development setups.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"synergy/internal/outbox"
	"synergy/pkg/platform/sentinel"
)

type Store struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*outbox.Message
	byKey    map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		messages: make(map[uuid.UUID]*outbox.Message),
		byKey:    make(map[string]uuid.UUID),
	}
}

func (s *Store) Append(_ context.Context, msg *outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[msg.IdempotencyKey]; exists {
		return fmt.Errorf("outbox message %s: %w", msg.IdempotencyKey, sentinel.ErrAlreadyUsed)
	}
	clone := *msg
	s.messages[msg.ID] = &clone
	s.byKey[msg.IdempotencyKey] = msg.ID
	return nil
}

func (s *Store) ClaimBatch(_ context.Context, limit int, now time.Time) ([]*outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var eligible []*outbox.Message
	for _, msg := range s.messages {
		if msg.Status == outbox.StatusPending && !msg.NextRetryAt.After(now) {
			eligible = append(eligible, msg)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	claimed := make([]*outbox.Message, 0, len(eligible))
	for _, msg := range eligible {
		msg.Claim(now)
		clone := *msg
		claimed = append(claimed, &clone)
	}
	return claimed, nil
}

func (s *Store) ReclaimStale(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := 0
	for _, msg := range s.messages {
		if msg.Status == outbox.StatusProcessing && msg.ClaimedAt != nil && !msg.ClaimedAt.After(cutoff) {
			msg.Status = outbox.StatusPending
			msg.ClaimedAt = nil
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (s *Store) MarkProcessed(_ context.Context, msgID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[msgID]
	if !ok || msg.Status != outbox.StatusProcessing {
		return sentinel.ErrNotFound
	}
	msg.MarkProcessed(now)
	return nil
}

func (s *Store) MarkFailed(_ context.Context, msgID uuid.UUID, deliveryErr string, maxRetries int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[msgID]
	if !ok || msg.Status != outbox.StatusProcessing {
		return sentinel.ErrNotFound
	}
	msg.MarkFailed(deliveryErr, maxRetries, now)
	return nil
}

func (s *Store) ListDeadLetters(_ context.Context, limit int) ([]*outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dead []*outbox.Message
	for _, msg := range s.messages {
		if msg.Status == outbox.StatusDeadLetter {
			clone := *msg
			dead = append(dead, &clone)
		}
	}
	sort.Slice(dead, func(i, j int) bool {
		return dead[i].CreatedAt.Before(dead[j].CreatedAt)
	})
	if len(dead) > limit {
		dead = dead[:limit]
	}
	return dead, nil
}

func (s *Store) Requeue(_ context.Context, msgID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[msgID]
	if !ok || msg.Status != outbox.StatusDeadLetter {
		return sentinel.ErrNotFound
	}
	msg.Status = outbox.StatusPending
	msg.RetryCount = 0
	msg.LastError = ""
	msg.NextRetryAt = now.UTC()
	return nil
}

// Find returns a snapshot of a message by its dedup key. Test helper.
func (s *Store) Find(idempotencyKey string) (*outbox.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgID, ok := s.byKey[idempotencyKey]
	if !ok {
		return nil, false
	}
	clone := *s.messages[msgID]
	return &clone, true
}

// MakeDue rewinds a pending message's next_retry_at so the claim loop sees
// it immediately. Test helper.
func (s *Store) MakeDue(idempotencyKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgID, ok := s.byKey[idempotencyKey]
	if !ok {
		return
	}
	if msg := s.messages[msgID]; msg.Status == outbox.StatusPending {
		msg.NextRetryAt = time.Now().Add(-time.Second)
	}
}

// All returns a snapshot of every message, oldest first. Test helper.
func (s *Store) All() []*outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*outbox.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		clone := *msg
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}
