package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cpcaisse/internal/declaration/models"
	"cpcaisse/internal/sideeffect"
	"cpcaisse/internal/sideeffect/notify"
	"cpcaisse/internal/sideeffect/notify/mocks"
	id "cpcaisse/pkg/domain"
)

type NotifierSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	mailer   *mocks.MockMailer
	notifier *notify.Notifier
	sent     []notify.Mail
}

func TestNotifierSuite(t *testing.T) {
	suite.Run(t, new(NotifierSuite))
}

func (s *NotifierSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mailer = mocks.NewMockMailer(s.ctrl)
	s.sent = nil
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.notifier = notify.New(s.mailer, notify.Lists{
		AlerteN4:       "direction.generale@banque.tn",
		AlerteRecidive: "rh@banque.tn",
		BaseURL:        "https://cp-caisse.intranet.banque.tn",
	}, logger)
}

func (s *NotifierSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *NotifierSuite) capture(times int) {
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m notify.Mail) error {
		s.sent = append(s.sent, m)
		return nil
	}).Times(times)
}

func declaration(niveau int) *models.Declaration {
	return &models.Declaration{
		ID:                  id.NewDeclarationID(),
		Ref:                 "DC-20250301-ABCDEF12",
		Niveau:              niveau,
		AgenceCode:          "056",
		Caissier:            models.Caissier{Matricule: "CAI-001", Nom: "Sami Trabelsi"},
		DateConstat:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		MontantDT:           1500,
		MontantMM:           50,
		Nature:              models.NatureManquant,
		TypeCaisse:          "Caisse DT Principale",
		DeclarationCaissier: "Erreur de comptage <b>lors</b> de l'arrêté de caisse du soir.",
	}
}

var recipients = models.Recipients{
	AgenceNom: "Agence Lac II",
	Region:    "Grand Tunis",
	CPEmail:   "cp.grandtunis@banque.tn",
	DirEmail:  "dir.056@banque.tn",
}

func (s *NotifierSuite) handle(kind sideeffect.Kind, d *models.Declaration) error {
	return s.notifier.Handle(context.Background(), sideeffect.NewEvent(kind, d, recipients, time.Now(), "req-1"))
}

func (s *NotifierSuite) TestCreationMailsCPAndDirector() {
	s.capture(2)

	s.Require().NoError(s.handle(sideeffect.KindDeclarationCreated, declaration(4)))

	s.Require().Len(s.sent, 2)
	s.Equal([]string{"cp.grandtunis@banque.tn"}, s.sent[0].To)
	s.Equal("[CP] Nouvelle déclaration 🔴 URGENT — Agence 056 — Réf. DC-20250301-ABCDEF12", s.sent[0].Subject)
	s.Contains(s.sent[0].HTML, "1500,050 DT")
	s.Contains(s.sent[0].HTML, "Niveau 4 — CRITIQUE")
	s.Contains(s.sent[0].HTML, "&lt;b&gt;lors&lt;/b&gt;", "free text must be escaped")

	s.Equal([]string{"dir.056@banque.tn"}, s.sent[1].To)
	s.Equal("[Agence 056] Déclaration de caisse soumise — Réf. DC-20250301-ABCDEF12", s.sent[1].Subject)
}

func (s *NotifierSuite) TestCreationSubjectWithoutUrgency() {
	s.capture(2)

	s.Require().NoError(s.handle(sideeffect.KindDeclarationCreated, declaration(2)))
	s.Equal("[CP] Nouvelle déclaration — Agence 056 — Réf. DC-20250301-ABCDEF12", s.sent[0].Subject)
}

func (s *NotifierSuite) TestAlerts() {
	s.Run("level four", func() {
		s.capture(1)
		s.Require().NoError(s.handle(sideeffect.KindSeverityFourAlert, declaration(4)))
		m := s.sent[len(s.sent)-1]
		s.Equal([]string{"direction.generale@banque.tn"}, m.To)
		s.Equal("🔴 ALERTE N4 — Agence 056 — 1500 DT — DC-20250301-ABCDEF12", m.Subject)
		s.True(m.Priority)
	})

	s.Run("recurrence", func() {
		s.capture(1)
		s.Require().NoError(s.handle(sideeffect.KindRecurrenceAlert, declaration(4)))
		m := s.sent[len(s.sent)-1]
		s.Equal([]string{"rh@banque.tn"}, m.To)
		s.Equal("⚠ Récidive — CAI-001 — Agence 056", m.Subject)
	})

	s.Run("validated goes to the director", func() {
		s.capture(1)
		s.Require().NoError(s.handle(sideeffect.KindDeclarationValidated, declaration(2)))
		m := s.sent[len(s.sent)-1]
		s.Equal([]string{"dir.056@banque.tn"}, m.To)
		s.Equal("✅ Déclaration validée — Réf. DC-20250301-ABCDEF12", m.Subject)
	})
}

func (s *NotifierSuite) TestMissingRecipientIsSkipped() {
	s.capture(1)
	ev := sideeffect.NewEvent(sideeffect.KindDeclarationCreated, declaration(1), models.Recipients{CPEmail: "cp.sahel@banque.tn"}, time.Now(), "")

	s.Require().NoError(s.notifier.Handle(context.Background(), ev))
	s.Require().Len(s.sent, 1)
	s.Equal([]string{"cp.sahel@banque.tn"}, s.sent[0].To)
}

func (s *NotifierSuite) TestSendFailureIsReturnedAfterTryingAll() {
	gomock.InOrder(
		s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("relay refused")),
		s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil),
	)

	err := s.handle(sideeffect.KindDeclarationCreated, declaration(1))
	s.Require().Error(err)
	s.Contains(err.Error(), "relay refused")
}
