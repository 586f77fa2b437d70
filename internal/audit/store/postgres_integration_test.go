//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cpcaisse/internal/audit/models"
	"cpcaisse/internal/audit/store"
	declmodels "cpcaisse/internal/declaration/models"
	declstore "cpcaisse/internal/declaration/store"
	id "cpcaisse/pkg/domain"
	txcontext "cpcaisse/pkg/platform/tx"
	"cpcaisse/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres     *containers.PostgresContainer
	store        *store.PostgresStore
	declarations *declstore.PostgresStore
	tx           *txcontext.SQLRunner
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
	s.declarations = declstore.NewPostgres(s.postgres.DB)
	s.tx = txcontext.NewSQLRunner(s.postgres.DB, 5*time.Second)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateDeclarations(context.Background()))
}

func (s *PostgresStoreSuite) declaration() id.DeclarationID {
	now := time.Now().UTC().Truncate(time.Microsecond)
	d := &declmodels.Declaration{
		ID:                  id.NewDeclarationID(),
		Ref:                 "DC-AUDIT-1",
		Statut:              declmodels.StatusSoumis,
		Niveau:              2,
		AgenceCode:          "056",
		Caissier:            declmodels.Caissier{Matricule: "CAI-001", Nom: "Sami Trabelsi", Fonction: "Caissier Principal"},
		DateConstat:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		HeureConstat:        "17:45",
		MontantDT:           150,
		Nature:              declmodels.NatureManquant,
		TypeCaisse:          "Caisse DT Principale",
		DeclarationCaissier: "Écart constaté lors de l'arrêté de caisse du soir.",
		Causes:              []string{"Erreur de comptage"},
		DeclarantMatricule:  "CAI-001",
		DeclarantRole:       "CAISSIER",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.Require().NoError(s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return s.declarations.Create(ctx, d)
	}))
	return d.ID
}

func (s *PostgresStoreSuite) commit(event models.Event) {
	s.Require().NoError(s.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return s.store.Append(ctx, event)
	}))
}

// A writer whose clock lags still lands after the event it committed behind.
func (s *PostgresStoreSuite) TestListByDeclarationFollowsCommitOrder() {
	declID := s.declaration()
	base := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	s.commit(models.Event{
		ID: id.NewAuditEventID(), DeclarationID: &declID, ActorMatricule: "SUP-056", ActorRole: "SUPERVISEUR",
		Action: models.ActionChangementStatut, PriorStatus: "SOUMIS", NewStatus: "EN_COURS", Timestamp: base.Add(time.Second),
	})
	s.commit(models.Event{
		ID: id.NewAuditEventID(), DeclarationID: &declID, ActorMatricule: "CP-001", ActorRole: "CP",
		Action: models.ActionChangementStatut, PriorStatus: "EN_COURS", NewStatus: "VALIDE", Timestamp: base,
	})

	trail, err := s.store.ListByDeclaration(context.Background(), declID)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal("EN_COURS", trail[0].NewStatus)
	s.Equal("VALIDE", trail[1].NewStatus)
}
