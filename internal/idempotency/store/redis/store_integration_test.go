//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"synergy/internal/idempotency"
	idemredis "synergy/internal/idempotency/store/redis"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *idemredis.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = idemredis.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newRecord(key string, ttl time.Duration) *idempotency.Record {
	now := time.Now().UTC()
	return &idempotency.Record{
		ID:        uuid.New(),
		Key:       key,
		Operation: "tenant.register",
		Status:    idempotency.StatusInProgress,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *RedisStoreSuite) TestClaimAndComplete() {
	ctx := context.Background()
	rec := s.newRecord("key-1", time.Hour)
	s.Require().NoError(s.store.Insert(ctx, rec))

	found, err := s.store.Get(ctx, "key-1")
	s.Require().NoError(err)
	s.Equal(rec.ID, found.ID)
	s.Equal(idempotency.StatusInProgress, found.Status)

	payload := []byte(`{"tenant_id":"abc"}`)
	s.Require().NoError(s.store.Complete(ctx, "key-1", payload))

	found, err = s.store.Get(ctx, "key-1")
	s.Require().NoError(err)
	s.Equal(idempotency.StatusComplete, found.Status)
	s.JSONEq(string(payload), string(found.ResponsePayload))
}

func (s *RedisStoreSuite) TestDuplicateClaimRejected() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.newRecord("key-1", time.Hour)))

	err := s.store.Insert(ctx, s.newRecord("key-1", time.Hour))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *RedisStoreSuite) TestClaimExpires() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.newRecord("key-1", time.Second)))

	s.Require().Eventually(func() bool {
		_, err := s.store.Get(ctx, "key-1")
		return err != nil
	}, 5*time.Second, 100*time.Millisecond, "record should expire with its TTL")

	// Expired key is claimable again.
	s.Require().NoError(s.store.Insert(ctx, s.newRecord("key-1", time.Hour)))
}

func (s *RedisStoreSuite) TestCompletePreservesExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.newRecord("key-1", 2*time.Second)))
	s.Require().NoError(s.store.Complete(ctx, "key-1", []byte(`{"ok":true}`)))

	ttl, err := s.redis.Client.TTL(ctx, "idem:key:key-1").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
	s.LessOrEqual(ttl, 2*time.Second)
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.newRecord("key-1", time.Hour)))
	s.Require().NoError(s.store.Delete(ctx, "key-1"))

	_, err := s.store.Get(ctx, "key-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Delete(ctx, "key-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestCompleteOnMissingKey() {
	err := s.store.Complete(context.Background(), "missing", []byte(`{}`))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
