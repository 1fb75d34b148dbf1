package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "synergy/pkg/domain"
)

func TestMarkFailedBackoff(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	msg := NewMessage("tenant", "agg-1", "tenant.registered.v1", []byte(`{}`), "corr-1", id.NewEventID(), now)

	// Backoff doubles per attempt: 2^1, 2^2, ... seconds.
	for attempt := 1; attempt <= 4; attempt++ {
		msg.MarkFailed("broker unavailable", 5, now)
		require.Equal(t, StatusPending, msg.Status, "attempt %d", attempt)
		assert.Equal(t, attempt, msg.RetryCount)
		wantDelay := time.Duration(1<<uint(attempt)) * time.Second
		assert.Equal(t, now.Add(wantDelay), msg.NextRetryAt, "attempt %d", attempt)
	}

	// Fifth failure crosses maxRetries and dead-letters permanently.
	msg.MarkFailed("broker unavailable", 5, now)
	assert.Equal(t, StatusDeadLetter, msg.Status)
	assert.Equal(t, 5, msg.RetryCount)
	assert.Equal(t, "broker unavailable", msg.LastError)
}

func TestMarkProcessed(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	msg := NewMessage("tenant", "agg-1", "tenant.activated.v1", []byte(`{}`), "corr-1", id.NewEventID(), now)

	done := now.Add(3 * time.Second)
	msg.MarkProcessed(done)
	assert.Equal(t, StatusProcessed, msg.Status)
	require.NotNil(t, msg.ProcessedAt)
	assert.Equal(t, done, *msg.ProcessedAt)
}

func TestNewMessageEligibleImmediately(t *testing.T) {
	now := time.Now()
	eventID := id.NewEventID()
	msg := NewMessage("onboarding", "agg-2", "onboarding.finalized.v1", []byte(`{}`), "corr-2", eventID, now)

	assert.Equal(t, StatusPending, msg.Status)
	assert.Equal(t, eventID.String(), msg.IdempotencyKey)
	assert.False(t, msg.NextRetryAt.After(now.UTC()))
	assert.Zero(t, msg.RetryCount)
}
