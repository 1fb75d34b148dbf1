//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"synergy/internal/idempotency"
	idempg "synergy/internal/idempotency/store/postgres"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/platform/tx"
	"synergy/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *idempg.Store
	runner   tx.Runner
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = idempg.New(s.postgres.DB)
	s.runner = tx.NewSQLRunner(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "idempotency_records")
	s.Require().NoError(err)
}

func newRecord(key string) *idempotency.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &idempotency.Record{
		ID:        uuid.New(),
		Key:       key,
		Operation: "tenant.register",
		Status:    idempotency.StatusInProgress,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func (s *PostgresStoreSuite) TestClaimAndComplete() {
	ctx := context.Background()
	rec := newRecord("key-1")
	s.Require().NoError(s.store.Insert(ctx, rec))

	found, err := s.store.Get(ctx, "key-1")
	s.Require().NoError(err)
	s.Equal(idempotency.StatusInProgress, found.Status)
	s.Equal("tenant.register", found.Operation)

	payload := []byte(`{"tenant_id":"abc"}`)
	s.Require().NoError(s.store.Complete(ctx, "key-1", payload))

	found, err = s.store.Get(ctx, "key-1")
	s.Require().NoError(err)
	s.Equal(idempotency.StatusComplete, found.Status)
	s.JSONEq(string(payload), string(found.ResponsePayload))

	// COMPLETE is terminal.
	err = s.store.Complete(ctx, "key-1", []byte(`{}`))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateClaimRejected() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, newRecord("key-1")))

	err := s.store.Insert(ctx, newRecord("key-1"))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestCompleteEnlistsInTransaction() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, newRecord("key-1")))

	rollback := fmt.Errorf("force rollback")
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Complete(txCtx, "key-1", []byte(`{"ok":true}`)); err != nil {
			return err
		}
		return rollback
	})
	s.Require().ErrorIs(err, rollback)

	found, err := s.store.Get(ctx, "key-1")
	s.Require().NoError(err)
	s.Equal(idempotency.StatusInProgress, found.Status, "rolled-back Complete must leave the claim in place")
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, newRecord("key-1")))
	s.Require().NoError(s.store.Delete(ctx, "key-1"))

	_, err := s.store.Get(ctx, "key-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Delete(ctx, "key-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// Exactly one of N racing claims may win.
func (s *PostgresStoreSuite) TestConcurrentClaims() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Insert(ctx, newRecord("contested")); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}
