// Package postgres persists outbox messages in the outbox_messages table.
//
// Append enlists in the caller's transaction when one is carried in context,
// so staging commits atomically with the aggregate mutation. The dispatcher
// methods run outside any caller transaction and use FOR UPDATE SKIP LOCKED so
// concurrent dispatcher instances never claim the same row.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"synergy/internal/outbox"
	"synergy/pkg/platform/sentinel"
	txcontext "synergy/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (s *Store) Append(ctx context.Context, msg *outbox.Message) error {
	query := `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			correlation_id, idempotency_key, status, retry_count,
			created_at, next_retry_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		msg.ID,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.Payload,
		msg.CorrelationID,
		msg.IdempotencyKey,
		string(msg.Status),
		msg.RetryCount,
		msg.CreatedAt,
		msg.NextRetryAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("outbox message %s: %w", msg.IdempotencyKey, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// ClaimBatch selects eligible PENDING rows oldest-first and flips them to
// PROCESSING in one statement. SKIP LOCKED makes the claim non-blocking:
// rows held by a peer dispatcher are passed over, not waited on.
func (s *Store) ClaimBatch(ctx context.Context, limit int, now time.Time) ([]*outbox.Message, error) {
	query := `
		UPDATE outbox_messages
		SET status = 'PROCESSING', claimed_at = $1
		WHERE id IN (
			SELECT id FROM outbox_messages
			WHERE status = 'PENDING' AND next_retry_at <= $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, aggregate_type, aggregate_id, event_type, payload,
		          correlation_id, idempotency_key, status, retry_count,
		          COALESCE(last_error, ''), created_at, claimed_at, processed_at, next_retry_at
	`
	rows, err := s.db.QueryContext(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox batch: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *Store) MarkProcessed(ctx context.Context, msgID uuid.UUID, now time.Time) error {
	query := `
		UPDATE outbox_messages
		SET status = 'PROCESSED', claimed_at = NULL, processed_at = $2
		WHERE id = $1 AND status = 'PROCESSING'
	`
	return s.mustAffect(ctx, query, msgID, now.UTC())
}

// MarkFailed increments the retry count and either dead-letters the message or
// reschedules it with exponential backoff, all in one statement so the
// bookkeeping survives a dispatcher crash mid-batch.
func (s *Store) MarkFailed(ctx context.Context, msgID uuid.UUID, deliveryErr string, maxRetries int, now time.Time) error {
	query := `
		UPDATE outbox_messages
		SET retry_count = retry_count + 1,
		    last_error = $2,
		    claimed_at = NULL,
		    status = CASE WHEN retry_count + 1 >= $3 THEN 'DEAD_LETTER' ELSE 'PENDING' END,
		    next_retry_at = CASE WHEN retry_count + 1 >= $3 THEN next_retry_at
		                         ELSE $4::timestamptz + make_interval(secs => power(2, retry_count + 1)) END
		WHERE id = $1 AND status = 'PROCESSING'
	`
	return s.mustAffect(ctx, query, msgID, deliveryErr, maxRetries, now.UTC())
}

func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload,
		       correlation_id, idempotency_key, status, retry_count,
		       COALESCE(last_error, ''), created_at, claimed_at, processed_at, next_retry_at
		FROM outbox_messages
		WHERE status = 'DEAD_LETTER'
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Requeue is the operator replay path: a dead-lettered message goes back to
// PENDING with a reset retry budget.
func (s *Store) Requeue(ctx context.Context, msgID uuid.UUID, now time.Time) error {
	query := `
		UPDATE outbox_messages
		SET status = 'PENDING', retry_count = 0, last_error = NULL, claimed_at = NULL, next_retry_at = $2
		WHERE id = $1 AND status = 'DEAD_LETTER'
	`
	return s.mustAffect(ctx, query, msgID, now.UTC())
}

// ReclaimStale sweeps claims abandoned by a dispatcher that died between
// ClaimBatch and MarkProcessed/MarkFailed. Rows go straight back to PENDING
// with their retry budget untouched; delivery stays at-least-once.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE outbox_messages
		SET status = 'PENDING', claimed_at = NULL
		WHERE status = 'PROCESSING' AND claimed_at <= $1
	`
	res, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("reclaim stale outbox claims: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim stale outbox claims: %w", err)
	}
	return int(affected), nil
}

func (s *Store) mustAffect(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outbox message: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]*outbox.Message, error) {
	var messages []*outbox.Message
	for rows.Next() {
		var (
			msg         outbox.Message
			status      string
			claimedAt   sql.NullTime
			processedAt sql.NullTime
		)
		err := rows.Scan(
			&msg.ID,
			&msg.AggregateType,
			&msg.AggregateID,
			&msg.EventType,
			&msg.Payload,
			&msg.CorrelationID,
			&msg.IdempotencyKey,
			&status,
			&msg.RetryCount,
			&msg.LastError,
			&msg.CreatedAt,
			&claimedAt,
			&processedAt,
			&msg.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msg.Status = outbox.Status(status)
		if claimedAt.Valid {
			t := claimedAt.Time
			msg.ClaimedAt = &t
		}
		if processedAt.Valid {
			t := processedAt.Time
			msg.ProcessedAt = &t
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}
	return messages, nil
}
