//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cpcaisse/internal/declaration/models"
	"cpcaisse/internal/declaration/store"
	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
	"cpcaisse/pkg/testutil"
	"cpcaisse/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	tx       *txcontext.SQLRunner
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.tx = txcontext.NewSQLRunner(s.postgres.DB, 5*time.Second)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateDeclarations(context.Background()))
}

func declaration(ref string, dt int64, niveau int) *models.Declaration {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Declaration{
		ID:                      id.NewDeclarationID(),
		Ref:                     ref,
		Statut:                  models.StatusSoumis,
		Niveau:                  niveau,
		AgenceCode:              "056",
		Caissier:                models.Caissier{Matricule: "CAI-001", Nom: "Sami Trabelsi", Fonction: "Caissier Principal"},
		DateConstat:             time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		HeureConstat:            "17:45",
		MontantDT:               dt,
		MontantMM:               250,
		Nature:                  models.NatureManquant,
		TypeCaisse:              "Caisse DT Principale",
		DeclarationCaissier:     "Écart constaté lors de l'arrêté de caisse du soir.",
		ObservationsSuperviseur: "Recomptage effectué.",
		Causes:                  []string{"Erreur de comptage", "Erreur de rendu monnaie"},
		Mesures:                 []string{"Recomptage immédiat"},
		DeclarantMatricule:      "SUP-056",
		DeclarantRole:           "SUPERVISEUR",
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func (s *PostgresStoreSuite) create(d *models.Declaration) error {
	return s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return s.store.Create(ctx, d)
	})
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	d := declaration("DC-PG-1", 1500, 4)
	s.Require().NoError(s.create(d))

	got, err := s.store.FindByID(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Equal("Agence Lac II", got.AgenceNom)
	s.Equal([]string{"Erreur de comptage", "Erreur de rendu monnaie"}, got.Causes)
	s.Equal([]string{"Recomptage immédiat"}, got.Mesures)
	s.Equal(models.StatusSoumis, got.Statut)
	s.Nil(got.StatutUpdatedAt)

	s.ErrorIs(s.create(declaration("DC-PG-1", 10, 1)), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestRollbackLeavesNothing() {
	d := declaration("DC-PG-2", 10, 1)
	err := s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := s.store.Create(ctx, d); err != nil {
			return err
		}
		return errors.New("audit failed")
	})
	s.Require().Error(err)

	_, err = s.store.FindByID(context.Background(), d.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentUpdatesAreSerializedByRowLock() {
	d := declaration("DC-PG-3", 10, 1)
	s.Require().NoError(s.create(d))

	result := testutil.RunConcurrent(10, func(int) error {
		return s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
			current, err := s.store.FindForUpdate(ctx, d.ID)
			if err != nil {
				return err
			}
			current.CPCentral.NDossier += "x"
			return s.store.UpdateStatus(ctx, current)
		})
	})
	s.Equal(int32(10), result.Successes)

	got, err := s.store.FindByID(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Len(got.CPCentral.NDossier, 10)
}

func (s *PostgresStoreSuite) TestListCountAndPDFPath() {
	for i, dt := range []int64{5, 1500, 300} {
		d := declaration("DC-PG-L"+string(rune('A'+i)), dt, models.BandedLevel(dt))
		d.CreatedAt = d.CreatedAt.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.create(d))
	}

	rows, err := s.store.List(context.Background(), models.ListFilter{Sort: models.SortAmountDesc, Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("DC-PG-LB", rows[0].Ref)
	s.Equal("Agence Lac II", rows[0].AgenceNom)

	total, err := s.store.Count(context.Background(), models.ListFilter{Niveau: 4})
	s.Require().NoError(err)
	s.Equal(1, total)

	s.Require().NoError(s.store.SetPDFPath(context.Background(), rows[0].ID, "/archives/2025/03/DC-PG-LB.pdf"))
	got, err := s.store.FindByID(context.Background(), rows[0].ID)
	s.Require().NoError(err)
	s.Equal("/archives/2025/03/DC-PG-LB.pdf", got.PDFPath)
}
