// Package service assembles the monthly dashboard.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"cpcaisse/internal/access"
	declmodels "cpcaisse/internal/declaration/models"
	"cpcaisse/internal/platform/tracing"
	"cpcaisse/internal/stats/models"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/requestcontext"
)

var tracer = tracing.Tracer("cpcaisse/stats")

type Store interface {
	Totals(ctx context.Context, q models.Query) (models.Totals, error)
	ByLevel(ctx context.Context, q models.Query) ([]models.LevelBucket, error)
	ByStatus(ctx context.Context, q models.Query) ([]models.StatusBucket, error)
	ByRegion(ctx context.Context, q models.Query) ([]models.RegionBucket, error)
	Evolution(ctx context.Context, since time.Time, agence string) ([]models.DayBucket, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Dashboard runs the five aggregates concurrently. A zero year or month
// means the current one; a scoped caller only ever sees its own agency.
func (s *Service) Dashboard(ctx context.Context, identity access.Identity, q models.Query) (_ *models.Dashboard, err error) {
	ctx, span := tracing.Start(ctx, tracer, "stats.dashboard", "matricule", identity.Matricule)
	defer func() { tracing.End(span, err) }()

	now := requestcontext.Now(ctx).UTC()
	if q.Annee == 0 {
		q.Annee = now.Year()
	}
	if q.Mois == 0 {
		q.Mois = int(now.Month())
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.Agence = access.EffectiveAgencyFilter(identity, q.Agence)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(models.EvolutionDays - 1))

	out := &models.Dashboard{Annee: q.Annee, Mois: q.Mois}
	var days []models.DayBucket
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Totaux, err = s.store.Totals(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		out.ParNiveau, err = s.store.ByLevel(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		out.ParStatut, err = s.store.ByStatus(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		out.ParRegion, err = s.store.ByRegion(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		days, err = s.store.Evolution(gctx, since, q.Agence)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to compute statistics",
			"error", err,
			"annee", q.Annee,
			"mois", q.Mois,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to compute statistics")
	}

	sortByWorkflow(out.ParStatut)
	out.Evolution = fillDays(since, days)
	return out, nil
}

// sortByWorkflow orders status buckets as the review workflow runs.
func sortByWorkflow(buckets []models.StatusBucket) {
	order := map[string]int{}
	for i, st := range declmodels.AllStatuses() {
		order[string(st)] = i
	}
	slices.SortFunc(buckets, func(a, b models.StatusBucket) int {
		return order[a.Statut] - order[b.Statut]
	})
}

// fillDays returns one bucket per day of the window, zero for quiet days.
func fillDays(since time.Time, days []models.DayBucket) []models.DayBucket {
	byDay := make(map[string]models.DayBucket, len(days))
	for _, d := range days {
		byDay[d.Jour.Format(time.DateOnly)] = d
	}
	out := make([]models.DayBucket, 0, models.EvolutionDays)
	for i := range models.EvolutionDays {
		day := since.AddDate(0, 0, i)
		b, ok := byDay[day.Format(time.DateOnly)]
		if !ok {
			b = models.DayBucket{}
		}
		b.Jour = day
		out = append(out, b)
	}
	return out
}
