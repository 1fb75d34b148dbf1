// Package consumer provides a committing Kafka consumer loop built on
// franz-go. Offsets are committed only after the handler returns nil, so a
// crashed handler sees its message again. Handlers must therefore tolerate
// redelivery.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	platstrings "synergy/pkg/platform/strings"
)

// Message is one consumed record, decoupled from the client library so
// handlers stay testable.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Handler processes one message. A nil return commits the offset; an error
// leaves it uncommitted for redelivery.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type Config struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	ClientID string
}

type topicPartition struct {
	topic     string
	partition int32
}

// Consumer runs a poll/handle/commit loop for a consumer group.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(platstrings.DedupeAndTrim(cfg.Topics)...),
		kgo.DisableAutoCommit(),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is cancelled. A handler error freezes offset commits
// for that record's partition: nothing at or past the failed record is ever
// committed by this session, so a rebalance or restart redelivers from the
// failure point. Other partitions keep flowing.
func (c *Consumer) Run(ctx context.Context) error {
	failed := make(map[topicPartition]struct{})
	for {
		fetches := c.client.PollFetches(ctx)
		if errors.Is(fetches.Err0(), context.Canceled) {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		// Only the contiguous successful prefix of each partition is
		// committed: once a record fails, later records on that partition
		// must not be committed past it, or the failed record would be
		// consumed without ever being handled.
		var committable []*kgo.Record
		fetches.EachRecord(func(record *kgo.Record) {
			tp := topicPartition{topic: record.Topic, partition: record.Partition}
			if _, stopped := failed[tp]; stopped {
				return
			}
			msg := &Message{
				Topic:   record.Topic,
				Key:     record.Key,
				Value:   record.Value,
				Headers: headerMap(record.Headers),
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				failed[tp] = struct{}{}
				c.logger.Error("message handling failed, leaving partition uncommitted",
					"topic", record.Topic,
					"partition", record.Partition,
					"offset", record.Offset,
					"error", err,
				)
				return
			}
			committable = append(committable, record)
		})

		if len(committable) > 0 {
			if err := c.client.CommitRecords(ctx, committable...); err != nil {
				c.logger.Error("offset commit failed", "error", err)
			}
		}
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}

func headerMap(headers []kgo.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
