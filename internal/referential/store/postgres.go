// Package store persists agencies and regions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"cpcaisse/internal/referential/models"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
)

// foreignKeyViolation is the SQLSTATE postgres raises for a missing region.
const foreignKeyViolation = "23503"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins the ambient transaction when there is one.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// ListActive returns active agencies with their region, ordered by code.
func (s *PostgresStore) ListActive(ctx context.Context) ([]models.Agency, error) {
	query := `
		SELECT a.code, a.nom, COALESCE(a.dir_email, ''), a.region_id, r.nom, COALESCE(r.cp_email, ''), a.actif
		FROM agences a
		JOIN regions r ON r.id = a.region_id
		WHERE a.actif = TRUE
		ORDER BY a.code
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query agencies: %w", err)
	}
	defer rows.Close()

	var out []models.Agency
	for rows.Next() {
		var a models.Agency
		if err := rows.Scan(&a.Code, &a.Nom, &a.DirEmail, &a.RegionID, &a.Region, &a.CPEmail, &a.Actif); err != nil {
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agencies: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces an agency and reactivates it. An unknown region
// yields sentinel.ErrNotFound.
func (s *PostgresStore) Upsert(ctx context.Context, agency models.Agency) error {
	query := `
		INSERT INTO agences (code, nom, region_id, dir_email, actif)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (code) DO UPDATE
		SET nom = EXCLUDED.nom, region_id = EXCLUDED.region_id, dir_email = EXCLUDED.dir_email, actif = TRUE
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, agency.Code, agency.Nom, agency.RegionID, nullString(agency.DirEmail))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("region %d: %w", agency.RegionID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("upsert agency: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
