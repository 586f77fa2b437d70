// Package kafka holds broker administration shared by the producer and consumer.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"cpcaisse/internal/platform/kafka/producer"
)

// Admin wraps a kadm client for topic bootstrap and health checks.
type Admin struct {
	client *kgo.Client
	adm    *kadm.Client
}

// NewAdmin connects an admin client to brokers.
func NewAdmin(brokers string) (*Admin, error) {
	if brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	client, err := kgo.NewClient(kgo.SeedBrokers(producer.SplitBrokers(brokers)...))
	if err != nil {
		return nil, fmt.Errorf("create kafka admin client: %w", err)
	}
	return &Admin{client: client, adm: kadm.NewClient(client)}, nil
}

// EnsureTopics creates any missing topic with the broker's default partitioning.
// Topics that already exist are not an error.
func (a *Admin) EnsureTopics(ctx context.Context, topics ...string) error {
	resp, err := a.adm.CreateTopics(ctx, -1, -1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, t := range resp.Sorted() {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Health reports an error unless at least one broker answers metadata.
func (a *Admin) Health(ctx context.Context) error {
	brokers, err := a.adm.ListBrokers(ctx)
	if err != nil {
		return fmt.Errorf("list kafka brokers: %w", err)
	}
	if len(brokers) == 0 {
		return fmt.Errorf("no kafka brokers reachable")
	}
	return nil
}

// Close releases the admin connection.
func (a *Admin) Close() {
	a.client.Close()
}
