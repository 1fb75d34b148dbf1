// Package admin bootstraps Kafka topics at startup.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	platstrings "synergy/pkg/platform/strings"
)

// EnsureTopics creates the given topics if they do not already exist.
// Safe to call from every instance at startup.
func EnsureTopics(ctx context.Context, brokers []string, logger *slog.Logger, topics ...string) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("creating kafka admin client: %w", err)
	}
	defer client.Close()

	adm := kadm.NewClient(client)
	responses, err := adm.CreateTopics(ctx, -1, -1, nil, platstrings.DedupeAndTrim(topics)...)
	if err != nil {
		return fmt.Errorf("creating topics: %w", err)
	}
	for _, response := range responses.Sorted() {
		if response.Err != nil {
			if errors.Is(response.Err, kerr.TopicAlreadyExists) {
				continue
			}
			return fmt.Errorf("creating topic %s: %w", response.Topic, response.Err)
		}
		logger.Info("created kafka topic", "topic", response.Topic)
	}
	return nil
}
