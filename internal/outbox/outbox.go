// Package outbox implements the transactional outbox: domain events are
// staged in the same unit of work as the state change they describe, then
// delivered asynchronously by the dispatcher. Either both the state change
// and the staged message commit, or neither does.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "synergy/pkg/domain"
)

// Status is the delivery state of a staged message. PROCESSED and DEAD_LETTER
// are terminal.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusDeadLetter Status = "DEAD_LETTER"
)

// Message is one staged event. Exactly one row exists per source event id:
// the unique constraint on IdempotencyKey rejects duplicate staging.
type Message struct {
	ID             uuid.UUID
	AggregateType  string
	AggregateID    string
	EventType      string
	Payload        []byte
	CorrelationID  string
	IdempotencyKey string
	Status         Status
	RetryCount     int
	LastError      string
	CreatedAt      time.Time
	ClaimedAt      *time.Time
	ProcessedAt    *time.Time
	NextRetryAt    time.Time
}

// NewMessage stages a message as PENDING, eligible for dispatch immediately.
func NewMessage(aggregateType, aggregateID, eventType string, payload []byte, correlationID string, eventID id.EventID, now time.Time) *Message {
	return &Message{
		ID:             uuid.New(),
		AggregateType:  aggregateType,
		AggregateID:    aggregateID,
		EventType:      eventType,
		Payload:        payload,
		CorrelationID:  correlationID,
		IdempotencyKey: eventID.String(),
		Status:         StatusPending,
		CreatedAt:      now.UTC(),
		NextRetryAt:    now.UTC(),
	}
}

// Claim marks the message PROCESSING and stamps when the claim was taken,
// so a claim whose dispatcher died can be recognized as stale.
func (m *Message) Claim(now time.Time) {
	m.Status = StatusProcessing
	at := now.UTC()
	m.ClaimedAt = &at
}

// MarkProcessed stamps the message terminal after a successful delivery.
func (m *Message) MarkProcessed(now time.Time) {
	m.Status = StatusProcessed
	m.ClaimedAt = nil
	at := now.UTC()
	m.ProcessedAt = &at
}

// MarkFailed records a delivery failure. RetryCount is monotonically
// non-decreasing; once it reaches maxRetries the message dead-letters and is
// never attempted again. Otherwise it reverts to PENDING with exponential
// backoff: next_retry_at = now + 2^retryCount seconds.
func (m *Message) MarkFailed(deliveryErr string, maxRetries int, now time.Time) {
	m.RetryCount++
	m.LastError = deliveryErr
	m.ClaimedAt = nil
	if m.RetryCount >= maxRetries {
		m.Status = StatusDeadLetter
		return
	}
	m.Status = StatusPending
	m.NextRetryAt = now.UTC().Add(time.Duration(1<<uint(m.RetryCount)) * time.Second)
}

// Store persists outbox messages. Append must participate in the caller's
// transaction (pkg/platform/tx); the claim/mark methods are used by the
// dispatcher outside any caller transaction.
type Store interface {
	// Append stages a message. Returns sentinel.ErrAlreadyUsed when a message
	// with the same idempotency key was already staged.
	Append(ctx context.Context, msg *Message) error

	// ClaimBatch atomically selects up to limit PENDING messages with
	// next_retry_at <= now, oldest created first, and marks them PROCESSING.
	// Rows claimed by a concurrent dispatcher are skipped, never waited on.
	ClaimBatch(ctx context.Context, limit int, now time.Time) ([]*Message, error)

	// MarkProcessed finalizes a claimed message after successful delivery.
	MarkProcessed(ctx context.Context, msgID uuid.UUID, now time.Time) error

	// MarkFailed applies the retry/backoff bookkeeping of Message.MarkFailed
	// to a claimed message.
	MarkFailed(ctx context.Context, msgID uuid.UUID, deliveryErr string, maxRetries int, now time.Time) error

	// ReclaimStale reverts PROCESSING messages claimed at or before cutoff
	// back to PENDING. A dispatcher that dies between claiming and marking
	// leaves its rows PROCESSING; the sweep puts them back in reach of the
	// next tick. Returns the number of messages reclaimed.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int, error)

	// ListDeadLetters returns dead-lettered messages for operator inspection.
	ListDeadLetters(ctx context.Context, limit int) ([]*Message, error)

	// Requeue moves a dead-lettered message back to PENDING for manual
	// operator replay.
	Requeue(ctx context.Context, msgID uuid.UUID, now time.Time) error
}

// Event is what the staging API needs from a domain event. Both tenant
// lifecycle events and onboarding signals satisfy it.
type Event interface {
	EventID() id.EventID
	EventType() string
	AggregateID() string
	EventCorrelationID() string
}
