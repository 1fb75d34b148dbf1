// Package idempotency deduplicates client-submitted operations by a
// client-supplied key, so a retried request is recognized instead of
// re-executed.
//
// Lifecycle of a record: a key is claimed IN_PROGRESS before any side effects
// start, then marked COMPLETE (with the cached response) inside the same unit
// of work as the operation's other writes. A crash between the two leaves
// IN_PROGRESS, which is safe: it blocks duplicates until the TTL expires, and
// an expired record is treated as absent.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	dErrors "synergy/pkg/domain-errors"
	"synergy/pkg/platform/sentinel"
	"synergy/pkg/requestcontext"
)

// RecordStatus transitions IN_PROGRESS → COMPLETE at most once.
type RecordStatus string

const (
	StatusInProgress RecordStatus = "IN_PROGRESS"
	StatusComplete   RecordStatus = "COMPLETE"
)

// Record is one claimed idempotency key.
type Record struct {
	ID              uuid.UUID
	Key             string
	Operation       string
	Status          RecordStatus
	ResponsePayload []byte
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

func (r *Record) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store persists idempotency records. Insert must rely on a uniqueness
// constraint on Key so that exactly one of two racing claims succeeds.
type Store interface {
	// Get returns the record for a key, or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)

	// Insert durably claims a key. Returns sentinel.ErrAlreadyUsed when the
	// key is already claimed.
	Insert(ctx context.Context, rec *Record) error

	// Complete transitions IN_PROGRESS → COMPLETE and stores the serialized
	// response. Participates in the caller's transaction where the backend
	// supports one.
	Complete(ctx context.Context, key string, payload []byte) error

	// Delete removes a record; used to clear expired claims.
	Delete(ctx context.Context, key string) error
}

// Outcome of a Check.
type Outcome int

const (
	// OutcomeAbsent means the key is unclaimed (or its claim expired):
	// proceed as a fresh request.
	OutcomeAbsent Outcome = iota
	// OutcomeInProgress means a concurrent duplicate is executing: fail the
	// current request with a conflict, never re-execute side effects.
	OutcomeInProgress
	// OutcomeComplete means the operation already finished: replay the
	// cached response byte-for-byte.
	OutcomeComplete
)

type CheckResult struct {
	Outcome Outcome
	// Payload is the cached response; set only for OutcomeComplete.
	Payload []byte
}

// Guard wraps a store with the TTL policy.
type Guard struct {
	store Store
	ttl   time.Duration
}

func NewGuard(store Store, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Guard{store: store, ttl: ttl}
}

// Check classifies the key. An expired record is removed and reported absent,
// so a later Begin with the same key is treated as fresh. Work still in
// flight under the stale claim completes against a key it no longer owns;
// Complete on a missing record is a no-op for exactly that reason.
func (g *Guard) Check(ctx context.Context, key string) (CheckResult, error) {
	rec, err := g.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return CheckResult{Outcome: OutcomeAbsent}, nil
		}
		return CheckResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "idempotency lookup failed")
	}

	if rec.IsExpired(requestcontext.Now(ctx)) {
		if err := g.store.Delete(ctx, key); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return CheckResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "expired idempotency cleanup failed")
		}
		return CheckResult{Outcome: OutcomeAbsent}, nil
	}

	switch rec.Status {
	case StatusInProgress:
		return CheckResult{Outcome: OutcomeInProgress}, nil
	case StatusComplete:
		return CheckResult{Outcome: OutcomeComplete, Payload: rec.ResponsePayload}, nil
	}
	return CheckResult{}, dErrors.Newf(dErrors.CodeInternal, "unknown idempotency status %q", rec.Status)
}

// Begin durably claims the key before any side-effecting work starts. When
// two callers race, exactly one insert succeeds; the loser gets a conflict
// and must not proceed.
func (g *Guard) Begin(ctx context.Context, key, operation string) error {
	now := requestcontext.Now(ctx).UTC()
	rec := &Record{
		ID:        uuid.New(),
		Key:       key,
		Operation: operation,
		Status:    StatusInProgress,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	if err := g.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeConflict, "request with this idempotency key is already in progress")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "idempotency claim failed")
	}
	return nil
}

// Release drops an IN_PROGRESS claim after the operation fails, so an
// immediate retry with the same key is treated as fresh instead of waiting
// out the TTL. Delete on a missing record is a no-op, which makes Release
// safe to race with expiry cleanup.
func (g *Guard) Release(ctx context.Context, key string) error {
	if err := g.store.Delete(ctx, key); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "idempotency release failed")
	}
	return nil
}

// Complete caches the response. Must run in the same unit of work as the
// operation's writes so a crash never leaves COMPLETE without the matching
// state change.
func (g *Guard) Complete(ctx context.Context, key string, payload []byte) error {
	if err := g.store.Complete(ctx, key, payload); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "idempotency completion failed")
	}
	return nil
}
