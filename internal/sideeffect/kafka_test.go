package sideeffect_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cpcaisse/internal/declaration/models"
	"cpcaisse/internal/platform/kafka/consumer"
	"cpcaisse/internal/platform/kafka/producer"
	"cpcaisse/internal/sideeffect"
	"cpcaisse/internal/sideeffect/mocks"
	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/platform/circuit"
	"cpcaisse/pkg/requestcontext"
)

type KafkaSinkSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	publisher *mocks.MockPublisher
	fallback  *mocks.MockSink
	sink      *sideeffect.KafkaSink
	logger    *slog.Logger
}

func TestKafkaSinkSuite(t *testing.T) {
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.fallback = mocks.NewMockSink(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	s.sink = sideeffect.NewKafkaSink(s.publisher, s.fallback, breaker, s.logger)
}

func (s *KafkaSinkSuite) TearDownTest() {
	s.ctrl.Finish()
}

func event(kind sideeffect.Kind) sideeffect.Event {
	decl := &models.Declaration{
		ID:         id.NewDeclarationID(),
		Ref:        "DC-20250301-ABCDEF12",
		Statut:     models.StatusSoumis,
		Niveau:     4,
		AgenceCode: "056",
		MontantDT:  1500,
		Caissier:   models.Caissier{Matricule: "CAI-001", Nom: "Sami Trabelsi"},
	}
	return sideeffect.NewEvent(kind, decl, models.Recipients{AgenceNom: "Agence Lac II", CPEmail: "cp.grandtunis@banque.tn"}, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), "req-7")
}

func (s *KafkaSinkSuite) TestPublishesOnKindTopic() {
	ev := event(sideeffect.KindSeverityFourAlert)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg *producer.Message) error {
		s.Equal(sideeffect.TopicSeverityFourAlert, msg.Topic)
		s.Equal(ev.Key(), string(msg.Key))
		s.Equal("req-7", msg.Headers["request_id"])

		var decoded sideeffect.Event
		s.Require().NoError(json.Unmarshal(msg.Value, &decoded))
		s.Equal(ev.Declaration.ID, decoded.Declaration.ID)
		s.Equal(int64(1500), decoded.Declaration.MontantDT)
		return nil
	})

	s.NoError(s.sink.Deliver(context.Background(), ev))
}

func (s *KafkaSinkSuite) TestPublishFailureFallsBackLocally() {
	ev := event(sideeffect.KindDeclarationCreated)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(errors.New("broker unavailable"))
	s.fallback.EXPECT().Deliver(gomock.Any(), ev).Return(nil)

	s.NoError(s.sink.Deliver(context.Background(), ev))
}

// TestOpenCircuitSkipsKafka verifies that once the breaker opens, events go
// straight to the local sink until the cooldown elapses.
func (s *KafkaSinkSuite) TestOpenCircuitSkipsKafka() {
	ev := event(sideeffect.KindDeclarationCreated)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(errors.New("broker unavailable")).Times(2)
	s.fallback.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	for i := 0; i < 3; i++ {
		s.NoError(s.sink.Deliver(context.Background(), ev))
	}
}

func (s *KafkaSinkSuite) TestConsumerHandlerRoutesDecodedEvents() {
	handler := sideeffect.NewConsumerHandler(s.fallback, s.logger)
	ev := event(sideeffect.KindRecurrenceAlert)
	ev.RequestID = ""
	value, err := json.Marshal(ev)
	s.Require().NoError(err)

	s.fallback.EXPECT().Deliver(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, got sideeffect.Event) error {
		s.Equal(sideeffect.KindRecurrenceAlert, got.Kind)
		s.Equal("CAI-001", got.Declaration.Caissier.Matricule)
		s.Equal("req-from-header", requestcontext.RequestID(ctx))
		return nil
	})

	err = handler.Handle(context.Background(), &consumer.Message{
		Topic:   sideeffect.TopicRecurrenceAlert,
		Key:     []byte(ev.Key()),
		Value:   value,
		Headers: map[string]string{"request_id": "req-from-header"},
	})
	s.NoError(err)
}

func (s *KafkaSinkSuite) TestConsumerHandlerSkipsBadRecords() {
	handler := sideeffect.NewConsumerHandler(s.fallback, s.logger)
	value, err := json.Marshal(event(sideeffect.KindDeclarationCreated))
	s.Require().NoError(err)

	s.Run("unknown topic", func() {
		s.NoError(handler.Handle(context.Background(), &consumer.Message{Topic: "cp.other", Value: value}))
	})
	s.Run("malformed payload", func() {
		s.NoError(handler.Handle(context.Background(), &consumer.Message{Topic: sideeffect.TopicDeclarationCreated, Value: []byte("{")}))
	})
	s.Run("kind does not match topic", func() {
		s.NoError(handler.Handle(context.Background(), &consumer.Message{Topic: sideeffect.TopicDeclarationValidated, Value: value}))
	})
}
