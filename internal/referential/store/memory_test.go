package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpcaisse/internal/referential/models"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
)

func TestInMemoryStore_ListActive(t *testing.T) {
	s := NewSeededInMemoryStore()

	agencies, err := s.ListActive(context.Background())
	require.NoError(t, err)

	codes := make([]string, 0, len(agencies))
	for _, a := range agencies {
		codes = append(codes, a.Code)
	}
	assert.Equal(t, []string{"056", "057", "101"}, codes, "retired agency 199 is hidden, order by code")
	assert.Equal(t, "Grand Tunis", agencies[0].Region)
	assert.Equal(t, "cp.grandtunis@banque.tn", agencies[0].CPEmail)
}

func TestInMemoryStore_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown region is not found", func(t *testing.T) {
		s := NewSeededInMemoryStore()
		err := s.Upsert(ctx, models.Agency{Code: "300", Nom: "Agence Sfax", RegionID: 9})
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("upsert reactivates a retired agency", func(t *testing.T) {
		s := NewSeededInMemoryStore()
		require.NoError(t, s.Upsert(ctx, models.Agency{Code: "199", Nom: "Agence Monastir Marina", RegionID: 2}))

		agencies, err := s.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, agencies, 4)
		assert.Equal(t, "Agence Monastir Marina", agencies[3].Nom)
	})

	t.Run("write inside a scope waits for commit", func(t *testing.T) {
		s := NewSeededInMemoryStore()
		scope := txcontext.NewScope()
		scoped := txcontext.WithScope(ctx, scope)

		require.NoError(t, s.Upsert(scoped, models.Agency{Code: "300", Nom: "Agence Sfax", RegionID: 2}))
		before, _ := s.ListActive(ctx)
		assert.Len(t, before, 3)

		scope.Commit()
		scope.Release()
		after, _ := s.ListActive(ctx)
		assert.Len(t, after, 4)
	})
}
