// Package redis is a Redis-backed idempotency store for deployments where
// request deduplication should not land on the primary database. Redis TTLs
// replace explicit expiry checks: an expired record is simply gone.
//
// Note: Redis cannot join the registration's SQL transaction, so Complete is
// only crash-atomic with the operation's writes when the Postgres store is
// used. The guard's IN_PROGRESS-on-crash semantics still hold here.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"synergy/internal/idempotency"
	"synergy/pkg/platform/sentinel"
)

const keyPrefix = "idem:key:"

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

type storedRecord struct {
	ID              string                   `json:"id"`
	Key             string                   `json:"key"`
	Operation       string                   `json:"operation"`
	Status          idempotency.RecordStatus `json:"status"`
	ResponsePayload []byte                   `json:"response_payload,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	ExpiresAt       time.Time                `json:"expires_at"`
}

func (s *Store) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get idempotency record: %w", err)
	}
	return decode(raw)
}

func (s *Store) Insert(ctx context.Context, rec *idempotency.Record) error {
	raw, err := encode(rec)
	if err != nil {
		return err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("idempotency record already expired at %s", rec.ExpiresAt)
	}
	// SET NX is the atomic claim: exactly one of two racing inserts wins.
	ok, err := s.client.SetNX(ctx, keyPrefix+rec.Key, raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis claim idempotency key: %w", err)
	}
	if !ok {
		return fmt.Errorf("idempotency key %s: %w", rec.Key, sentinel.ErrAlreadyUsed)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, key string, payload []byte) error {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get idempotency record: %w", err)
	}
	rec, err := decode(raw)
	if err != nil {
		return err
	}
	if rec.Status != idempotency.StatusInProgress {
		return sentinel.ErrNotFound
	}
	rec.Status = idempotency.StatusComplete
	rec.ResponsePayload = payload

	updated, err := encode(rec)
	if err != nil {
		return err
	}
	// KeepTTL preserves the original expiry set by the claim.
	if err := s.client.Set(ctx, keyPrefix+key, updated, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("redis complete idempotency record: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	deleted, err := s.client.Del(ctx, keyPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("redis delete idempotency record: %w", err)
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func encode(rec *idempotency.Record) ([]byte, error) {
	raw, err := json.Marshal(storedRecord{
		ID:              rec.ID.String(),
		Key:             rec.Key,
		Operation:       rec.Operation,
		Status:          rec.Status,
		ResponsePayload: rec.ResponsePayload,
		CreatedAt:       rec.CreatedAt,
		ExpiresAt:       rec.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal idempotency record: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*idempotency.Record, error) {
	var sr storedRecord
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	recID, err := uuid.Parse(sr.ID)
	if err != nil {
		return nil, fmt.Errorf("parse idempotency record id: %w", err)
	}
	rec := &idempotency.Record{
		ID:              recID,
		Key:             sr.Key,
		Operation:       sr.Operation,
		Status:          sr.Status,
		ResponsePayload: sr.ResponsePayload,
		CreatedAt:       sr.CreatedAt,
		ExpiresAt:       sr.ExpiresAt,
	}
	return rec, nil
}
