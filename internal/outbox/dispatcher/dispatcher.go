// Package dispatcher drains the outbox to the message transport.
//
// One or more dispatcher instances poll on a fixed interval; the store's
// skip-locked claim keeps them from double-delivering. All state needed for
// correctness lives in the outbox table, so a dispatcher restarted after a
// crash resumes from the persisted PENDING rows.
//
// Delivery is at-least-once: a crash after the transport ack but before
// MarkProcessed redelivers on the next tick. Consumers dedupe on the event id.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"synergy/internal/outbox"
	outboxmetrics "synergy/internal/outbox/metrics"
	"synergy/pkg/platform/circuit"
)

var tracer = otel.Tracer("synergy/outbox/dispatcher")

// Transport delivers one message to the broker. Implementations must bound
// the attempt with their own timeout; a stuck delivery is treated as failed.
type Transport interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// TopicRouter picks the destination topic for a staged message.
type TopicRouter func(aggregateType, eventType string) string

type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxRetries     int
	PublishTimeout time.Duration
	// ClaimTimeout bounds how long a claim may sit in PROCESSING before a
	// peer treats its owner as dead and reclaims the row. Must comfortably
	// exceed PublishTimeout so live claims are never stolen mid-delivery.
	ClaimTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 10 * time.Second
	}
	if c.ClaimTimeout <= 0 {
		c.ClaimTimeout = time.Minute
	}
}

type Dispatcher struct {
	store     outbox.Store
	transport Transport
	topics    TopicRouter
	cfg       Config
	logger    *slog.Logger
	metrics   *outboxmetrics.Metrics
	breaker   *circuit.Breaker
}

type Option func(d *Dispatcher)

func WithMetrics(m *outboxmetrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func New(store outbox.Store, transport Transport, topics TopicRouter, cfg Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	cfg.applyDefaults()
	d := &Dispatcher{
		store:     store,
		transport: transport,
		topics:    topics,
		cfg:       cfg,
		logger:    logger,
		breaker:   circuit.New("outbox-transport"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls until the context is cancelled. Claim or delivery errors are
// logged and retried on the next tick rather than stopping the worker.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				d.logger.ErrorContext(ctx, "outbox dispatch tick failed", "error", err)
			}
		}
	}
}

// DispatchOnce claims one batch and attempts delivery for each claimed
// message. It returns the number of messages delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "outbox.dispatch")
	defer span.End()

	// Claims stranded by a peer that died mid-batch would otherwise sit in
	// PROCESSING forever, since ClaimBatch only selects PENDING.
	if reclaimed, err := d.store.ReclaimStale(ctx, time.Now().Add(-d.cfg.ClaimTimeout)); err != nil {
		d.logger.ErrorContext(ctx, "stale claim sweep failed", "error", err)
	} else if reclaimed > 0 {
		d.logger.WarnContext(ctx, "reclaimed stale outbox claims", "count", reclaimed)
	}

	// With the transport circuit open, claim a single probe message instead
	// of a full batch; a broker outage then costs one attempt per tick, not
	// a batch's worth of retry budget.
	batchSize := d.cfg.BatchSize
	if d.breaker.IsOpen() {
		batchSize = 1
	}

	batch, err := d.store.ClaimBatch(ctx, batchSize, time.Now())
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("outbox.batch_size", len(batch)))
	if d.metrics != nil {
		d.metrics.BatchSize.Observe(float64(len(batch)))
	}

	delivered := 0
	for _, msg := range batch {
		if err := d.deliver(ctx, msg); err != nil {
			if _, change := d.breaker.RecordFailure(); change.Opened {
				d.logger.WarnContext(ctx, "outbox transport circuit opened", "breaker", d.breaker.Name())
			}
			d.recordFailure(ctx, msg, err)
			continue
		}
		if _, change := d.breaker.RecordSuccess(); change.Closed {
			d.logger.InfoContext(ctx, "outbox transport circuit closed", "breaker", d.breaker.Name())
		}
		if err := d.store.MarkProcessed(ctx, msg.ID, time.Now()); err != nil {
			// The transport took the message; the row stays PROCESSING only
			// until the next claim cycle sees it again after operator action.
			d.logger.ErrorContext(ctx, "mark processed failed", "message_id", msg.ID, "error", err)
			continue
		}
		delivered++
		if d.metrics != nil {
			d.metrics.Dispatched.Inc()
		}
	}
	return delivered, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg *outbox.Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()

	topic := d.topics(msg.AggregateType, msg.EventType)
	headers := map[string]string{
		"event-type":     msg.EventType,
		"event-id":       msg.IdempotencyKey,
		"correlation-id": msg.CorrelationID,
	}
	return d.transport.Publish(ctx, topic, msg.AggregateID, msg.Payload, headers)
}

func (d *Dispatcher) recordFailure(ctx context.Context, msg *outbox.Message, deliveryErr error) {
	if d.metrics != nil {
		d.metrics.Failed.Inc()
	}
	if err := d.store.MarkFailed(ctx, msg.ID, deliveryErr.Error(), d.cfg.MaxRetries, time.Now()); err != nil {
		d.logger.ErrorContext(ctx, "mark failed failed", "message_id", msg.ID, "error", err)
		return
	}
	// RetryCount on our snapshot is pre-increment.
	if msg.RetryCount+1 >= d.cfg.MaxRetries {
		if d.metrics != nil {
			d.metrics.DeadLettered.Inc()
		}
		d.logger.ErrorContext(ctx, "outbox message dead-lettered",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"retry_count", msg.RetryCount+1,
			"error", deliveryErr,
		)
		return
	}
	d.logger.WarnContext(ctx, "outbox delivery failed, will retry",
		"message_id", msg.ID,
		"event_type", msg.EventType,
		"retry_count", msg.RetryCount+1,
		"error", deliveryErr,
	)
}
