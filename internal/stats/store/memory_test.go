package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	declmodels "cpcaisse/internal/declaration/models"
	declstore "cpcaisse/internal/declaration/store"
	refstore "cpcaisse/internal/referential/store"
	"cpcaisse/internal/stats/models"
	id "cpcaisse/pkg/domain"
	txcontext "cpcaisse/pkg/platform/tx"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	agence string
	date   time.Time
	dt     int64
	mm     int
	niveau int
	statut declmodels.Status
	nature declmodels.Nature
	recid  bool
}

var fixtures = []fixture{
	{"056", day(3, 2), 150, 500, 2, declmodels.StatusSoumis, declmodels.NatureManquant, false},
	{"056", day(3, 5), 1500, 0, 4, declmodels.StatusCloture, declmodels.NatureExcedent, false},
	{"057", day(3, 5), 10, 250, 4, declmodels.StatusEnCours, declmodels.NatureManquant, true},
	{"101", day(3, 9), 300, 0, 3, declmodels.StatusValide, declmodels.NatureManquant, false},
	{"101", day(1, 15), 50, 0, 2, declmodels.StatusRejete, declmodels.NatureExcedent, false},
}

// seed stores the fixtures through the declaration store so the stats see
// committed rows only.
func seed(t *testing.T, create func(ctx context.Context, d *declmodels.Declaration) error, runner txcontext.Runner) {
	t.Helper()
	for i, f := range fixtures {
		d := &declmodels.Declaration{
			ID:                 id.NewDeclarationID(),
			Ref:                fmt.Sprintf("DC-STATS-%d", i),
			Statut:             f.statut,
			Niveau:             f.niveau,
			AgenceCode:         f.agence,
			Caissier:           declmodels.Caissier{Matricule: "CAI-001", Nom: "M. BEN SALAH", Grade: "Agent", Fonction: "Caissier"},
			DateConstat:        f.date,
			HeureConstat:       "10:00",
			MontantDT:          f.dt,
			MontantMM:          f.mm,
			Nature:             f.nature,
			TypeCaisse:         "Caisse principale",
			Causes:             []string{"Erreur de comptage"},
			Mesures:            []string{},
			Recidive:           f.recid,
			DeclarantMatricule: "SUP-056",
			DeclarantRole:      "SUPERVISEUR",
			CreatedAt:          f.date,
			UpdatedAt:          f.date,
		}
		require.NoError(t, runner.RunInTx(context.Background(), func(ctx context.Context) error {
			return create(ctx, d)
		}))
	}
}

// assertDashboard checks the aggregates both store implementations must agree on.
func assertDashboard(t *testing.T, s interface {
	Totals(ctx context.Context, q models.Query) (models.Totals, error)
	ByLevel(ctx context.Context, q models.Query) ([]models.LevelBucket, error)
	ByStatus(ctx context.Context, q models.Query) ([]models.StatusBucket, error)
	ByRegion(ctx context.Context, q models.Query) ([]models.RegionBucket, error)
	Evolution(ctx context.Context, since time.Time, agence string) ([]models.DayBucket, error)
}) {
	t.Helper()
	ctx := context.Background()
	march := models.Query{Annee: 2025, Mois: 3}

	totals, err := s.Totals(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, 4, totals.Total)
	assert.Equal(t, 2, totals.N4)
	assert.Equal(t, 1, totals.Recidives)
	assert.Equal(t, 1, totals.Clotures)
	assert.Equal(t, 2, totals.EnCours)
	assert.True(t, decimal.RequireFromString("1960.75").Equal(totals.MontantTotal), totals.MontantTotal.String())
	assert.True(t, decimal.RequireFromString("490.188").Equal(totals.MontantMoyen), totals.MontantMoyen.String())

	scoped, err := s.Totals(ctx, models.Query{Annee: 2025, Mois: 3, Agence: "056"})
	require.NoError(t, err)
	assert.Equal(t, 2, scoped.Total)

	levels, err := s.ByLevel(ctx, march)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{levels[0].Niveau, levels[1].Niveau, levels[2].Niveau})
	assert.Equal(t, 2, levels[2].Nb)

	statuses, err := s.ByStatus(ctx, march)
	require.NoError(t, err)
	assert.Len(t, statuses, 4)

	regions, err := s.ByRegion(ctx, march)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "Grand Tunis", regions[0].Region)
	assert.Equal(t, 3, regions[0].Nb)
	assert.Equal(t, "Sahel", regions[1].Region)
	assert.Equal(t, 2, regions[1].Nb, "region totals cover the whole year")

	days, err := s.Evolution(ctx, day(3, 4), "")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, day(3, 5).Equal(days[0].Jour))
	assert.Equal(t, 1, days[0].Manquants)
	assert.Equal(t, 1, days[0].Excedents)
	assert.True(t, day(3, 9).Equal(days[1].Jour))
}

func TestInMemoryStore(t *testing.T) {
	decls := declstore.NewInMemoryStore()
	seed(t, decls.Create, txcontext.NewScopeRunner(time.Second))

	assertDashboard(t, NewInMemoryStore(decls, refstore.NewSeededInMemoryStore()))
}

func TestInMemoryStore_EmptyMonth(t *testing.T) {
	s := NewInMemoryStore(declstore.NewInMemoryStore(), refstore.NewSeededInMemoryStore())

	totals, err := s.Totals(context.Background(), models.Query{Annee: 2025, Mois: 6})
	require.NoError(t, err)
	assert.Zero(t, totals.Total)
	assert.True(t, totals.MontantMoyen.IsZero())

	levels, err := s.ByLevel(context.Background(), models.Query{Annee: 2025, Mois: 6})
	require.NoError(t, err)
	assert.Empty(t, levels)
}
