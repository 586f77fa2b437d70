// Package service records and reads the audit trail.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Reader,DeclarationReadChecker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cpcaisse/internal/access"
	"cpcaisse/internal/audit/models"
	id "cpcaisse/pkg/domain"
	dErrors "cpcaisse/pkg/domain-errors"
)

// Reader is the read side of the audit store.
type Reader interface {
	ListByDeclaration(ctx context.Context, declID id.DeclarationID) ([]models.Event, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Event, error)
	Count(ctx context.Context, filter models.ListFilter) (int, error)
}

// DeclarationReadChecker decides whether an identity may read a declaration.
// It fails with not found or forbidden exactly as reading the declaration would.
type DeclarationReadChecker interface {
	CheckReadable(ctx context.Context, identity access.Identity, declID id.DeclarationID) error
}

// Service answers audit journal queries.
type Service struct {
	store        Reader
	declarations DeclarationReadChecker
}

func New(store Reader, declarations DeclarationReadChecker) *Service {
	return &Service{store: store, declarations: declarations}
}

// ListByDeclaration returns a declaration's trail oldest first, to anyone who
// may read that declaration.
func (s *Service) ListByDeclaration(ctx context.Context, identity access.Identity, declID id.DeclarationID) ([]models.Event, error) {
	if err := s.declarations.CheckReadable(ctx, identity, declID); err != nil {
		return nil, err
	}
	events, err := s.store.ListByDeclaration(ctx, declID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events")
	}
	return events, nil
}

// Page is one page of the global journal.
type Page struct {
	Events []models.Event
	Total  int
	Page   int
	Limit  int
}

// List returns the global journal newest first. Role gating happens at the
// route.
func (s *Service) List(ctx context.Context, filter models.ListFilter) (*Page, error) {
	filter.Normalize()

	var (
		events []models.Event
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.store.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events")
	}
	return &Page{Events: events, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
