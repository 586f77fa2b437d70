// Package store computes dashboard aggregates over declarations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cpcaisse/internal/stats/models"
)

// amountExpr is the exact amount of a row in dinars.
const amountExpr = `(d.montant_dt + d.montant_mm / 1000.0)`

// PostgresStore runs each aggregate as one grouped query. Month and year
// bounds are half-open ranges so the date_constat index applies.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// agencyCond appends the optional agency restriction as the next parameter.
func agencyCond(agence string, args []any) (string, []any) {
	if agence == "" {
		return "", args
	}
	args = append(args, agence)
	return fmt.Sprintf(" AND d.agence_code = $%d", len(args)), args
}

func (s *PostgresStore) Totals(ctx context.Context, q models.Query) (models.Totals, error) {
	cond, args := agencyCond(q.Agence, []any{q.MonthStart(), q.MonthEnd()})
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE d.niveau = 4),
			COUNT(*) FILTER (WHERE d.recidive),
			COUNT(*) FILTER (WHERE d.statut = 'CLOTURE'),
			COUNT(*) FILTER (WHERE d.statut IN ('SOUMIS', 'EN_COURS', 'EN_ENQUETE')),
			COALESCE(SUM(` + amountExpr + `), 0),
			COALESCE(ROUND(AVG(` + amountExpr + `), 3), 0)
		FROM declarations d
		WHERE d.date_constat >= $1 AND d.date_constat < $2` + cond

	var t models.Totals
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&t.Total, &t.N4, &t.Recidives, &t.Clotures, &t.EnCours, &t.MontantTotal, &t.MontantMoyen,
	)
	if err != nil {
		return models.Totals{}, fmt.Errorf("query month totals: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ByLevel(ctx context.Context, q models.Query) ([]models.LevelBucket, error) {
	cond, args := agencyCond(q.Agence, []any{q.MonthStart(), q.MonthEnd()})
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.niveau, COUNT(*), COALESCE(SUM(`+amountExpr+`), 0)
		FROM declarations d
		WHERE d.date_constat >= $1 AND d.date_constat < $2`+cond+`
		GROUP BY d.niveau
		ORDER BY d.niveau`, args...)
	if err != nil {
		return nil, fmt.Errorf("query level breakdown: %w", err)
	}
	defer rows.Close()

	out := []models.LevelBucket{}
	for rows.Next() {
		var b models.LevelBucket
		if err := rows.Scan(&b.Niveau, &b.Nb, &b.Montant); err != nil {
			return nil, fmt.Errorf("scan level bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ByStatus(ctx context.Context, q models.Query) ([]models.StatusBucket, error) {
	cond, args := agencyCond(q.Agence, []any{q.MonthStart(), q.MonthEnd()})
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.statut, COUNT(*)
		FROM declarations d
		WHERE d.date_constat >= $1 AND d.date_constat < $2`+cond+`
		GROUP BY d.statut`, args...)
	if err != nil {
		return nil, fmt.Errorf("query status breakdown: %w", err)
	}
	defer rows.Close()

	out := []models.StatusBucket{}
	for rows.Next() {
		var b models.StatusBucket
		if err := rows.Scan(&b.Statut, &b.Nb); err != nil {
			return nil, fmt.Errorf("scan status bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ByRegion(ctx context.Context, q models.Query) ([]models.RegionBucket, error) {
	cond, args := agencyCond(q.Agence, []any{q.YearStart(), q.YearStart().AddDate(1, 0, 0)})
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.nom, COUNT(*), COALESCE(SUM(`+amountExpr+`), 0)
		FROM declarations d
		JOIN agences a ON a.code = d.agence_code
		JOIN regions r ON r.id = a.region_id
		WHERE d.date_constat >= $1 AND d.date_constat < $2`+cond+`
		GROUP BY r.nom
		ORDER BY COUNT(*) DESC, r.nom`, args...)
	if err != nil {
		return nil, fmt.Errorf("query region breakdown: %w", err)
	}
	defer rows.Close()

	out := []models.RegionBucket{}
	for rows.Next() {
		var b models.RegionBucket
		if err := rows.Scan(&b.Region, &b.Nb, &b.Montant); err != nil {
			return nil, fmt.Errorf("scan region bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Evolution returns one row per day with at least one declaration since
// since, inclusive.
func (s *PostgresStore) Evolution(ctx context.Context, since time.Time, agence string) ([]models.DayBucket, error) {
	cond, args := agencyCond(agence, []any{since})
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.date_constat::date,
			COUNT(*) FILTER (WHERE d.nature = 'MANQUANT'),
			COUNT(*) FILTER (WHERE d.nature = 'EXCEDENT')
		FROM declarations d
		WHERE d.date_constat >= $1`+cond+`
		GROUP BY d.date_constat::date
		ORDER BY 1`, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily evolution: %w", err)
	}
	defer rows.Close()

	out := []models.DayBucket{}
	for rows.Next() {
		var b models.DayBucket
		if err := rows.Scan(&b.Jour, &b.Manquants, &b.Excedents); err != nil {
			return nil, fmt.Errorf("scan day bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
