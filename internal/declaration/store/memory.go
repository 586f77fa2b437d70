package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"cpcaisse/internal/declaration/models"
	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/platform/sentinel"
	cpsync "cpcaisse/pkg/platform/sync"
	txcontext "cpcaisse/pkg/platform/tx"
)

// InMemoryStore keeps declarations in a map. Writes are buffered on the
// ambient tx.Scope; FindForUpdate holds a per-id lock until the scope ends,
// which linearizes transitions on one declaration. Reads share the commit
// gate with the audit store, so a status change and its audit event become
// visible together.
type InMemoryStore struct {
	mu           sync.RWMutex
	declarations map[id.DeclarationID]*models.Declaration
	refs         map[string]struct{}
	locks        *cpsync.ShardedMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		declarations: make(map[id.DeclarationID]*models.Declaration),
		refs:         make(map[string]struct{}),
		locks:        cpsync.NewShardedMutex(),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, d *models.Declaration) error {
	scope, ok := txcontext.ScopeFrom(ctx)
	if !ok {
		return sentinel.ErrNoTransaction
	}

	s.mu.Lock()
	if _, taken := s.refs[d.Ref]; taken {
		s.mu.Unlock()
		return fmt.Errorf("declaration ref %s: %w", d.Ref, sentinel.ErrConflict)
	}
	// The reference is held from now on so a concurrent create cannot reuse
	// it; a rollback hands it back.
	s.refs[d.Ref] = struct{}{}
	s.mu.Unlock()

	stored := d.Clone()
	stored.Causes = sortedUnique(stored.Causes)
	stored.Mesures = sortedUnique(stored.Mesures)
	committed := false
	scope.OnCommit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.declarations[stored.ID] = stored
		committed = true
	})
	scope.OnRelease(func() {
		if committed {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.refs, stored.Ref)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, declID id.DeclarationID) (*models.Declaration, error) {
	defer txcontext.ReadCommitted()()
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.declarations[declID]
	if !ok {
		return nil, fmt.Errorf("declaration %s: %w", declID, sentinel.ErrNotFound)
	}
	return d.Clone(), nil
}

func (s *InMemoryStore) FindForUpdate(ctx context.Context, declID id.DeclarationID) (*models.Declaration, error) {
	scope, ok := txcontext.ScopeFrom(ctx)
	if !ok {
		return nil, sentinel.ErrNoTransaction
	}
	key := declID.String()
	s.locks.Lock(key)
	scope.OnRelease(func() { s.locks.Unlock(key) })

	return s.FindByID(ctx, declID)
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, d *models.Declaration) error {
	scope, ok := txcontext.ScopeFrom(ctx)
	if !ok {
		return sentinel.ErrNoTransaction
	}
	s.mu.RLock()
	_, exists := s.declarations[d.ID]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("declaration %s: %w", d.ID, sentinel.ErrNotFound)
	}

	update := d.Clone()
	scope.OnCommit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		stored := s.declarations[update.ID]
		stored.Statut = update.Statut
		stored.StatutUpdatedAt = update.StatutUpdatedAt
		stored.StatutUpdatedBy = update.StatutUpdatedBy
		stored.CPCentral = update.CPCentral
		stored.UpdatedAt = update.UpdatedAt
	})
	return nil
}

func (s *InMemoryStore) SetPDFPath(_ context.Context, declID id.DeclarationID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.declarations[declID]
	if !ok {
		return fmt.Errorf("declaration %s: %w", declID, sentinel.ErrNotFound)
	}
	d.PDFPath = path
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]models.Summary, error) {
	matched := s.matching(filter)
	sortDeclarations(matched, filter.Sort)

	start := min(filter.Offset(), len(matched))
	end := min(start+filter.Limit, len(matched))
	out := make([]models.Summary, 0, end-start)
	for _, d := range matched[start:end] {
		out = append(out, d.Summarize())
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, filter models.ListFilter) (int, error) {
	return len(s.matching(filter)), nil
}

// All returns a copy of every committed declaration.
func (s *InMemoryStore) All(_ context.Context) ([]*models.Declaration, error) {
	return s.matching(models.ListFilter{}), nil
}

func (s *InMemoryStore) matching(filter models.ListFilter) []*models.Declaration {
	defer txcontext.ReadCommitted()()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Declaration
	for _, d := range s.declarations {
		if filter.Matches(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

func sortDeclarations(ds []*models.Declaration, key models.SortKey) {
	slices.SortFunc(ds, func(a, b *models.Declaration) int {
		var c int
		switch key.Field() {
		case "montant":
			c = models.Amount(a.MontantDT, a.MontantMM).Cmp(models.Amount(b.MontantDT, b.MontantMM))
		case "niveau":
			c = cmp.Compare(a.Niveau, b.Niveau)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID.String(), b.ID.String())
		}
		if key.Descending() {
			return -c
		}
		return c
	})
}

func sortedUnique(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}
