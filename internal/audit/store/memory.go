package store

import (
	"context"
	"slices"
	"sync"

	"cpcaisse/internal/audit/models"
	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
)

// InMemoryStore keeps events in append order. Appends are buffered on the
// ambient tx.Scope and only become visible when it commits.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, event models.Event) error {
	scope, ok := txcontext.ScopeFrom(ctx)
	if !ok {
		return sentinel.ErrNoTransaction
	}
	scope.OnCommit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, event)
	})
	return nil
}

func (s *InMemoryStore) ListByDeclaration(_ context.Context, declID id.DeclarationID) ([]models.Event, error) {
	defer txcontext.ReadCommitted()()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Event
	for _, e := range s.events {
		if e.DeclarationID != nil && *e.DeclarationID == declID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]models.Event, error) {
	matched := s.matching(filter)
	start := min(filter.Offset(), len(matched))
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], nil
}

func (s *InMemoryStore) Count(_ context.Context, filter models.ListFilter) (int, error) {
	return len(s.matching(filter)), nil
}

// matching returns the filtered events newest first.
func (s *InMemoryStore) matching(filter models.ListFilter) []models.Event {
	defer txcontext.ReadCommitted()()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Event
	for _, e := range s.events {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out
}
