package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpcaisse/internal/declaration/models"
	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
	"cpcaisse/pkg/testutil"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newDecl(ref string, offset time.Duration, dt int64, niveau int) *models.Declaration {
	return &models.Declaration{
		ID:          id.NewDeclarationID(),
		Ref:         ref,
		Statut:      models.StatusSoumis,
		Niveau:      niveau,
		AgenceCode:  "056",
		AgenceNom:   "Agence Lac II",
		DateConstat: base.Truncate(24 * time.Hour),
		MontantDT:   dt,
		Causes:      []string{"Erreur de comptage", "Autre (préciser)", "Erreur de comptage"},
		CreatedAt:   base.Add(offset),
		UpdatedAt:   base.Add(offset),
	}
}

func create(t *testing.T, s *InMemoryStore, d *models.Declaration) {
	t.Helper()
	err := txcontext.NewScopeRunner(time.Second).RunInTx(context.Background(), func(ctx context.Context) error {
		return s.Create(ctx, d)
	})
	require.NoError(t, err)
}

func TestInMemoryStore_CreateIsBufferedUntilCommit(t *testing.T) {
	s := NewInMemoryStore()
	d := newDecl("DC-1", 0, 10, 1)
	boom := errors.New("audit failed")

	err := txcontext.NewScopeRunner(time.Second).RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.Create(ctx, d))
		_, err := s.FindByID(ctx, d.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound, "uncommitted declaration must stay invisible")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.FindByID(context.Background(), d.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	create(t, s, d)
	got, err := s.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Autre (préciser)", "Erreur de comptage"}, got.Causes)
	assert.Equal(t, []string{}, got.Mesures)
}

func TestInMemoryStore_DuplicateRefConflicts(t *testing.T) {
	s := NewInMemoryStore()
	create(t, s, newDecl("REF-CLIENT-1", 0, 10, 1))

	err := txcontext.NewScopeRunner(time.Second).RunInTx(context.Background(), func(ctx context.Context) error {
		return s.Create(ctx, newDecl("REF-CLIENT-1", time.Minute, 10, 1))
	})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_WritesRequireScope(t *testing.T) {
	s := NewInMemoryStore()
	d := newDecl("DC-2", 0, 10, 1)

	assert.ErrorIs(t, s.Create(context.Background(), d), sentinel.ErrNoTransaction)
	_, err := s.FindForUpdate(context.Background(), d.ID)
	assert.ErrorIs(t, err, sentinel.ErrNoTransaction)
	assert.ErrorIs(t, s.UpdateStatus(context.Background(), d), sentinel.ErrNoTransaction)
}

// TestInMemoryStore_FindForUpdateLinearizes runs read-modify-write cycles on
// one declaration concurrently. Without the per-id lock some increments would
// be lost.
func TestInMemoryStore_FindForUpdateLinearizes(t *testing.T) {
	s := NewInMemoryStore()
	d := newDecl("DC-3", 0, 10, 1)
	create(t, s, d)
	runner := txcontext.NewScopeRunner(time.Second)

	result := testutil.RunConcurrent(20, func(int) error {
		return runner.RunInTx(context.Background(), func(ctx context.Context) error {
			current, err := s.FindForUpdate(ctx, d.ID)
			if err != nil {
				return err
			}
			time.Sleep(time.Millisecond)
			current.CPCentral.NDossier += "x"
			return s.UpdateStatus(ctx, current)
		})
	})

	assert.Equal(t, int32(20), result.Successes)
	got, err := s.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Len(t, got.CPCentral.NDossier, 20)
}

func TestInMemoryStore_UpdateStatusOnlyTouchesReviewFields(t *testing.T) {
	s := NewInMemoryStore()
	d := newDecl("DC-4", 0, 10, 1)
	create(t, s, d)
	require.NoError(t, s.SetPDFPath(context.Background(), d.ID, "/archives/2025/03/DC-4.pdf"))

	at := base.Add(time.Hour)
	err := txcontext.NewScopeRunner(time.Second).RunInTx(context.Background(), func(ctx context.Context) error {
		current, err := s.FindForUpdate(ctx, d.ID)
		require.NoError(t, err)
		current.Statut = models.StatusEnCours
		current.StatutUpdatedAt = &at
		current.StatutUpdatedBy = "CP-001"
		current.MontantDT = 999999
		return s.UpdateStatus(ctx, current)
	})
	require.NoError(t, err)

	got, err := s.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnCours, got.Statut)
	assert.Equal(t, "CP-001", got.StatutUpdatedBy)
	assert.Equal(t, int64(10), got.MontantDT)
	assert.Equal(t, "/archives/2025/03/DC-4.pdf", got.PDFPath)

	assert.ErrorIs(t, s.SetPDFPath(context.Background(), id.NewDeclarationID(), "x"), sentinel.ErrNotFound)
}

func TestInMemoryStore_ListSortsAndPages(t *testing.T) {
	s := NewInMemoryStore()
	create(t, s, newDecl("A", 0, 500, 3))
	create(t, s, newDecl("B", time.Minute, 5, 1))
	create(t, s, newDecl("C", 2*time.Minute, 1500, 4))
	other := newDecl("D", 3*time.Minute, 50, 2)
	other.AgenceCode = "101"
	create(t, s, other)

	refs := func(f models.ListFilter) []string {
		rows, err := s.List(context.Background(), f)
		require.NoError(t, err)
		var out []string
		for _, r := range rows {
			out = append(out, r.Ref)
		}
		return out
	}

	assert.Equal(t, []string{"D", "C", "B", "A"}, refs(models.ListFilter{Sort: models.SortCreatedDesc, Page: 1, Limit: 20}))
	assert.Equal(t, []string{"B", "D", "A", "C"}, refs(models.ListFilter{Sort: models.SortAmountAsc, Page: 1, Limit: 20}))
	assert.Equal(t, []string{"C", "A"}, refs(models.ListFilter{Sort: models.SortLevelDesc, Page: 1, Limit: 2}))
	assert.Equal(t, []string{"B"}, refs(models.ListFilter{Agence: "056", Sort: models.SortLevelDesc, Page: 2, Limit: 2}))
	assert.Empty(t, refs(models.ListFilter{Sort: models.SortCreatedDesc, Page: 5, Limit: 2}))

	total, err := s.Count(context.Background(), models.ListFilter{Agence: "056"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
