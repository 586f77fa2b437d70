package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	declmodels "cpcaisse/internal/declaration/models"
	refmodels "cpcaisse/internal/referential/models"
	"cpcaisse/internal/stats/models"
)

// DeclarationSource lists every committed declaration.
type DeclarationSource interface {
	All(ctx context.Context) ([]*declmodels.Declaration, error)
}

// AgencyLister resolves agency codes to their region.
type AgencyLister interface {
	ListActive(ctx context.Context) ([]refmodels.Agency, error)
}

// InMemoryStore aggregates by scanning the in-memory declaration store. It
// answers like PostgresStore and serves deployments without a database.
type InMemoryStore struct {
	declarations DeclarationSource
	agencies     AgencyLister
}

func NewInMemoryStore(declarations DeclarationSource, agencies AgencyLister) *InMemoryStore {
	return &InMemoryStore{declarations: declarations, agencies: agencies}
}

func (s *InMemoryStore) scan(ctx context.Context, agence string, from, to time.Time) ([]*declmodels.Declaration, error) {
	all, err := s.declarations.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load declarations: %w", err)
	}
	var out []*declmodels.Declaration
	for _, d := range all {
		if agence != "" && d.AgenceCode != agence {
			continue
		}
		if d.DateConstat.Before(from) || (!to.IsZero() && !d.DateConstat.Before(to)) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func amount(d *declmodels.Declaration) decimal.Decimal {
	return declmodels.Amount(d.MontantDT, d.MontantMM)
}

func (s *InMemoryStore) Totals(ctx context.Context, q models.Query) (models.Totals, error) {
	ds, err := s.scan(ctx, q.Agence, q.MonthStart(), q.MonthEnd())
	if err != nil {
		return models.Totals{}, err
	}
	t := models.Totals{MontantTotal: decimal.Zero, MontantMoyen: decimal.Zero}
	for _, d := range ds {
		t.Total++
		if d.Niveau == declmodels.MaxLevel {
			t.N4++
		}
		if d.Recidive {
			t.Recidives++
		}
		if d.Statut == declmodels.StatusCloture {
			t.Clotures++
		}
		if d.Statut.IsOpen() {
			t.EnCours++
		}
		t.MontantTotal = t.MontantTotal.Add(amount(d))
	}
	if t.Total > 0 {
		t.MontantMoyen = t.MontantTotal.Div(decimal.NewFromInt(int64(t.Total))).Round(3)
	}
	return t, nil
}

func (s *InMemoryStore) ByLevel(ctx context.Context, q models.Query) ([]models.LevelBucket, error) {
	ds, err := s.scan(ctx, q.Agence, q.MonthStart(), q.MonthEnd())
	if err != nil {
		return nil, err
	}
	buckets := map[int]*models.LevelBucket{}
	for _, d := range ds {
		b, ok := buckets[d.Niveau]
		if !ok {
			b = &models.LevelBucket{Niveau: d.Niveau, Montant: decimal.Zero}
			buckets[d.Niveau] = b
		}
		b.Nb++
		b.Montant = b.Montant.Add(amount(d))
	}
	out := make([]models.LevelBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b models.LevelBucket) int { return cmp.Compare(a.Niveau, b.Niveau) })
	return out, nil
}

func (s *InMemoryStore) ByStatus(ctx context.Context, q models.Query) ([]models.StatusBucket, error) {
	ds, err := s.scan(ctx, q.Agence, q.MonthStart(), q.MonthEnd())
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, d := range ds {
		counts[string(d.Statut)]++
	}
	out := make([]models.StatusBucket, 0, len(counts))
	for statut, nb := range counts {
		out = append(out, models.StatusBucket{Statut: statut, Nb: nb})
	}
	return out, nil
}

func (s *InMemoryStore) ByRegion(ctx context.Context, q models.Query) ([]models.RegionBucket, error) {
	ds, err := s.scan(ctx, q.Agence, q.YearStart(), q.YearStart().AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	agencies, err := s.agencies.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load agencies: %w", err)
	}
	regionOf := make(map[string]string, len(agencies))
	for _, a := range agencies {
		regionOf[a.Code] = a.Region
	}

	buckets := map[string]*models.RegionBucket{}
	for _, d := range ds {
		region, ok := regionOf[d.AgenceCode]
		if !ok {
			continue
		}
		b, ok := buckets[region]
		if !ok {
			b = &models.RegionBucket{Region: region, Montant: decimal.Zero}
			buckets[region] = b
		}
		b.Nb++
		b.Montant = b.Montant.Add(amount(d))
	}
	out := make([]models.RegionBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b models.RegionBucket) int {
		if c := cmp.Compare(b.Nb, a.Nb); c != 0 {
			return c
		}
		return cmp.Compare(a.Region, b.Region)
	})
	return out, nil
}

func (s *InMemoryStore) Evolution(ctx context.Context, since time.Time, agence string) ([]models.DayBucket, error) {
	ds, err := s.scan(ctx, agence, since, time.Time{})
	if err != nil {
		return nil, err
	}
	days := map[time.Time]*models.DayBucket{}
	for _, d := range ds {
		day := d.DateConstat.Truncate(24 * time.Hour)
		b, ok := days[day]
		if !ok {
			b = &models.DayBucket{Jour: day}
			days[day] = b
		}
		switch d.Nature {
		case declmodels.NatureManquant:
			b.Manquants++
		case declmodels.NatureExcedent:
			b.Excedents++
		}
	}
	out := make([]models.DayBucket, 0, len(days))
	for _, b := range days {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b models.DayBucket) int { return a.Jour.Compare(b.Jour) })
	return out, nil
}
