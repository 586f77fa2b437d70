package sideeffect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cpcaisse/internal/platform/kafka/consumer"
	"cpcaisse/internal/platform/kafka/producer"
	"cpcaisse/pkg/platform/circuit"
	"cpcaisse/pkg/requestcontext"
)

const headerRequestID = "request_id"

// KafkaSink publishes events to their topic. While the breaker is open, or
// when a publish fails, the event is delivered through the fallback sink
// instead so mails and archives still happen.
type KafkaSink struct {
	publisher Publisher
	fallback  Sink
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

func NewKafkaSink(publisher Publisher, fallback Sink, breaker *circuit.Breaker, logger *slog.Logger) *KafkaSink {
	if breaker == nil {
		breaker = circuit.New("side-effects-kafka")
	}
	return &KafkaSink{
		publisher: publisher,
		fallback:  fallback,
		breaker:   breaker,
		logger:    logger,
	}
}

func (s *KafkaSink) Deliver(ctx context.Context, event Event) error {
	if !s.breaker.Allow() {
		return s.deliverLocally(ctx, event)
	}

	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := s.publisher.Produce(ctx, msg); err != nil {
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			breakerState.Set(1)
			s.logger.WarnContext(ctx, "side-effect kafka circuit opened",
				"error", err,
				"request_id", event.RequestID,
			)
		}
		s.logger.WarnContext(ctx, "side-effect publish failed, delivering locally",
			"kind", event.Kind,
			"topic", msg.Topic,
			"error", err,
			"request_id", event.RequestID,
		)
		return s.deliverLocally(ctx, event)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		breakerState.Set(0)
		s.logger.InfoContext(ctx, "side-effect kafka circuit closed",
			"request_id", event.RequestID,
		)
	}
	return nil
}

func (s *KafkaSink) deliverLocally(ctx context.Context, event Event) error {
	fallbackTotal.Inc()
	return s.fallback.Deliver(ctx, event)
}

func encode(event Event) (*producer.Message, error) {
	topic := event.Kind.Topic()
	if topic == "" {
		return nil, fmt.Errorf("no topic for side effect %q", event.Kind)
	}
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode side effect %s: %w", event.Kind, err)
	}
	msg := &producer.Message{
		Topic: topic,
		Key:   []byte(event.Key()),
		Value: value,
	}
	if event.RequestID != "" {
		msg.Headers = map[string]string{headerRequestID: event.RequestID}
	}
	return msg, nil
}

// ConsumerHandler feeds records of the side-effect topics back into a local
// sink. Undecodable records are logged and skipped.
type ConsumerHandler struct {
	sink   Sink
	logger *slog.Logger
}

func NewConsumerHandler(sink Sink, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{sink: sink, logger: logger}
}

func (h *ConsumerHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	kind, ok := KindForTopic(msg.Topic)
	if !ok {
		h.logger.WarnContext(ctx, "record on unknown side-effect topic, skipping",
			"topic", msg.Topic,
			"key", string(msg.Key),
		)
		return nil
	}

	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.WarnContext(ctx, "failed to decode side effect",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if event.Kind != kind || event.Declaration == nil {
		h.logger.WarnContext(ctx, "side effect does not match its topic, skipping",
			"topic", msg.Topic,
			"kind", event.Kind,
		)
		return nil
	}
	if event.RequestID == "" {
		event.RequestID = msg.Headers[headerRequestID]
	}

	ctx = requestcontext.WithRequestID(ctx, event.RequestID)
	if err := h.sink.Deliver(ctx, event); err != nil {
		failuresTotal.WithLabelValues(string(event.Kind)).Inc()
		return err
	}
	return nil
}
