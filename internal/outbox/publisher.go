package outbox

import (
	"context"
	"encoding/json"
	"log/slog"

	dErrors "synergy/pkg/domain-errors"
	"synergy/pkg/requestcontext"
)

// Publisher serializes domain events into the outbox store.
//
// Contract: Publish must run inside the same unit of work as the aggregate
// mutation that produced the event. If the outer transaction rolls back, the
// staged message rolls back too. This is the core of the transactional outbox
// guarantee: no "state changed but no event emitted" and no "event emitted for
// a state change that rolled back".
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Publish marshals the event and stages it keyed by the event id. A duplicate
// event id means the event was already staged; the unique constraint makes
// re-staging a no-op failure surfaced as a conflict.
func (p *Publisher) Publish(ctx context.Context, event Event, aggregateType string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal outbox payload")
	}

	msg := NewMessage(
		aggregateType,
		event.AggregateID(),
		event.EventType(),
		payload,
		event.EventCorrelationID(),
		event.EventID(),
		requestcontext.Now(ctx),
	)
	if err := p.store.Append(ctx, msg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "stage outbox message")
	}

	p.logger.DebugContext(ctx, "outbox message staged",
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"correlation_id", event.EventCorrelationID(),
	)
	return nil
}

// PublishAll stages a drained aggregate event buffer in order.
func (p *Publisher) PublishAll(ctx context.Context, events []Event, aggregateType string) error {
	for _, event := range events {
		if err := p.Publish(ctx, event, aggregateType); err != nil {
			return err
		}
	}
	return nil
}
