//go:build integration

package kafka_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cpcaisse/internal/platform/kafka"
	"cpcaisse/internal/platform/kafka/consumer"
	"cpcaisse/internal/platform/kafka/producer"
	"cpcaisse/internal/platform/logger"
	"cpcaisse/pkg/testutil/containers"
)

type KafkaIntegrationSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	admin    *kafka.Admin
	producer *producer.Producer
}

func TestKafkaIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaIntegrationSuite))
}

func (s *KafkaIntegrationSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())

	admin, err := kafka.NewAdmin(s.redpanda.Brokers)
	s.Require().NoError(err)
	s.admin = admin

	prod, err := producer.New(producer.Config{
		Brokers:         s.redpanda.Brokers,
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *KafkaIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
	if s.admin != nil {
		s.admin.Close()
	}
}

type collectingHandler struct {
	mu   sync.Mutex
	msgs []*consumer.Message
}

func (h *collectingHandler) Handle(_ context.Context, msg *consumer.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return nil
}

func (h *collectingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func (s *KafkaIntegrationSuite) TestEnsureTopicsIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.admin.EnsureTopics(ctx, "cp.test.idempotent"))
	s.Require().NoError(s.admin.EnsureTopics(ctx, "cp.test.idempotent"))
	s.Require().NoError(s.admin.Health(ctx))
}

func (s *KafkaIntegrationSuite) TestProduceThenConsume() {
	ctx := context.Background()
	topic := "cp.test.roundtrip"
	s.Require().NoError(s.admin.EnsureTopics(ctx, topic))

	handler := &collectingHandler{}
	c, err := consumer.New(consumer.Config{
		Brokers: s.redpanda.Brokers,
		GroupID: "cp-test-roundtrip",
		Topics:  []string{topic},
	}, handler, logger.New("error"))
	s.Require().NoError(err)
	c.Start(ctx)
	defer func() { _ = c.Stop(context.Background()) }()

	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("DC-20260301-ABCDEF12"),
		Value:   []byte(`{"ref":"DC-20260301-ABCDEF12"}`),
		Headers: map[string]string{"event_type": "declaration.created"},
	}))

	s.Eventually(func() bool { return handler.count() == 1 }, 20*time.Second, 100*time.Millisecond)
	handler.mu.Lock()
	defer handler.mu.Unlock()
	s.Equal("declaration.created", handler.msgs[0].Headers["event_type"])
}
