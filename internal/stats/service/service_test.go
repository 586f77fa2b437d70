package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cpcaisse/internal/access"
	"cpcaisse/internal/stats/models"
	"cpcaisse/internal/stats/service/mocks"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/requestcontext"
	"cpcaisse/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.service = New(s.store, nil)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) expectEmpty(q models.Query) {
	s.store.EXPECT().Totals(gomock.Any(), q).Return(models.Totals{}, nil)
	s.store.EXPECT().ByLevel(gomock.Any(), q).Return(nil, nil)
	s.store.EXPECT().ByStatus(gomock.Any(), q).Return(nil, nil)
	s.store.EXPECT().ByRegion(gomock.Any(), q).Return(nil, nil)
}

func (s *ServiceSuite) TestDashboard() {
	s.Run("defaults to the current month and fills the week", func() {
		q := models.Query{Annee: 2025, Mois: 3}
		s.store.EXPECT().Totals(gomock.Any(), q).Return(models.Totals{Total: 3, MontantTotal: decimal.RequireFromString("1650.5")}, nil)
		s.store.EXPECT().ByLevel(gomock.Any(), q).Return([]models.LevelBucket{{Niveau: 2, Nb: 2}, {Niveau: 4, Nb: 1}}, nil)
		s.store.EXPECT().ByStatus(gomock.Any(), q).Return([]models.StatusBucket{
			{Statut: "CLOTURE", Nb: 1}, {Statut: "SOUMIS", Nb: 1}, {Statut: "EN_COURS", Nb: 1},
		}, nil)
		s.store.EXPECT().ByRegion(gomock.Any(), q).Return([]models.RegionBucket{{Region: "Grand Tunis", Nb: 3}}, nil)
		since := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
		s.store.EXPECT().Evolution(gomock.Any(), since, "").Return([]models.DayBucket{
			{Jour: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), Manquants: 2, Excedents: 1},
		}, nil)

		d, err := s.service.Dashboard(s.ctx, access.IdentityFromClaims(&testutil.CP), models.Query{})
		s.Require().NoError(err)
		s.Equal(2025, d.Annee)
		s.Equal(3, d.Mois)
		s.Equal(3, d.Totaux.Total)
		s.Equal([]string{"SOUMIS", "EN_COURS", "CLOTURE"}, []string{d.ParStatut[0].Statut, d.ParStatut[1].Statut, d.ParStatut[2].Statut})

		s.Require().Len(d.Evolution, models.EvolutionDays)
		s.Equal(since, d.Evolution[0].Jour)
		s.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d.Evolution[6].Jour)
		s.Equal(2, d.Evolution[5].Manquants)
		s.Equal(1, d.Evolution[5].Excedents)
		s.Zero(d.Evolution[0].Manquants)
	})

	s.Run("director is confined to its agency", func() {
		q := models.Query{Annee: 2024, Mois: 12, Agence: "056"}
		s.expectEmpty(q)
		s.store.EXPECT().Evolution(gomock.Any(), gomock.Any(), "056").Return(nil, nil)

		_, err := s.service.Dashboard(s.ctx, access.IdentityFromClaims(&testutil.Directeur), models.Query{Annee: 2024, Mois: 12, Agence: "101"})
		s.Require().NoError(err)
	})

	s.Run("national roles may filter", func() {
		q := models.Query{Annee: 2025, Mois: 1, Agence: "101"}
		s.expectEmpty(q)
		s.store.EXPECT().Evolution(gomock.Any(), gomock.Any(), "101").Return(nil, nil)

		_, err := s.service.Dashboard(s.ctx, access.IdentityFromClaims(&testutil.Admin), models.Query{Annee: 2025, Mois: 1, Agence: "101"})
		s.Require().NoError(err)
	})

	s.Run("month out of range", func() {
		_, err := s.service.Dashboard(s.ctx, access.IdentityFromClaims(&testutil.CP), models.Query{Annee: 2025, Mois: 13})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("store failure", func() {
		q := models.Query{Annee: 2025, Mois: 3}
		s.store.EXPECT().Totals(gomock.Any(), q).Return(models.Totals{}, errors.New("connection reset")).AnyTimes()
		s.store.EXPECT().ByLevel(gomock.Any(), q).Return(nil, nil).AnyTimes()
		s.store.EXPECT().ByStatus(gomock.Any(), q).Return(nil, nil).AnyTimes()
		s.store.EXPECT().ByRegion(gomock.Any(), q).Return(nil, nil).AnyTimes()
		s.store.EXPECT().Evolution(gomock.Any(), gomock.Any(), "").Return(nil, nil).AnyTimes()

		_, err := s.service.Dashboard(s.ctx, access.IdentityFromClaims(&testutil.CP), models.Query{})
		s.True(dErrors.HasCode(err, dErrors.CodePersistence))
	})
}
