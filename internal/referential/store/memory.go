package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cpcaisse/internal/referential/models"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
)

// Region is a group of agencies sharing a permanent-control mailbox.
type Region struct {
	ID      int
	Nom     string
	CPEmail string
}

// InMemoryStore mirrors the seeded reference tables for development and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	regions  map[int]Region
	agencies map[string]models.Agency
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		regions:  make(map[int]Region),
		agencies: make(map[string]models.Agency),
	}
}

// NewSeededInMemoryStore returns a store holding the same regions and
// agencies as the seed migration.
func NewSeededInMemoryStore() *InMemoryStore {
	s := NewInMemoryStore()
	s.AddRegion(Region{ID: 1, Nom: "Grand Tunis", CPEmail: "cp.grandtunis@banque.tn"})
	s.AddRegion(Region{ID: 2, Nom: "Sahel", CPEmail: "cp.sahel@banque.tn"})
	s.AddAgency(models.Agency{Code: "056", Nom: "Agence Lac II", DirEmail: "dir.056@banque.tn", RegionID: 1, Actif: true})
	s.AddAgency(models.Agency{Code: "057", Nom: "Agence Menzah VI", DirEmail: "dir.057@banque.tn", RegionID: 1, Actif: true})
	s.AddAgency(models.Agency{Code: "101", Nom: "Agence Sousse Centre", DirEmail: "dir.101@banque.tn", RegionID: 2, Actif: true})
	s.AddAgency(models.Agency{Code: "199", Nom: "Agence Monastir Port", DirEmail: "dir.199@banque.tn", RegionID: 2, Actif: false})
	return s
}

func (s *InMemoryStore) AddRegion(r Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[r.ID] = r
}

func (s *InMemoryStore) AddAgency(a models.Agency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agencies[a.Code] = a
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]models.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Agency, 0, len(s.agencies))
	for _, a := range s.agencies {
		if !a.Actif {
			continue
		}
		region := s.regions[a.RegionID]
		a.Region = region.Nom
		a.CPEmail = region.CPEmail
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Agency) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

// Upsert is buffered on the ambient tx.Scope when there is one.
func (s *InMemoryStore) Upsert(ctx context.Context, agency models.Agency) error {
	s.mu.RLock()
	_, ok := s.regions[agency.RegionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("region %d: %w", agency.RegionID, sentinel.ErrNotFound)
	}

	agency.Actif = true
	agency.Region = ""
	agency.CPEmail = ""
	apply := func() { s.AddAgency(agency) }
	if scope, ok := txcontext.ScopeFrom(ctx); ok {
		scope.OnCommit(apply)
		return nil
	}
	apply()
	return nil
}
