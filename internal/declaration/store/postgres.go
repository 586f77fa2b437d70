// Package store persists declarations with their causes and measures.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"cpcaisse/internal/declaration/models"
	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists declarations in PostgreSQL. Writes join the ambient
// transaction; reads use the pool.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts the declaration row, its causes and its measures. It must
// run inside a transaction so a partial aggregate is never visible.
func (s *PostgresStore) Create(ctx context.Context, d *models.Declaration) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return sentinel.ErrNoTransaction
	}

	query := `
		INSERT INTO declarations (
			id, ref, statut, niveau, agence_code,
			caissier_matricule, caissier_nom, caissier_grade, caissier_fonction,
			date_constat, heure_constat, heure_arrete, montant_dt, montant_mm, nature, type_caisse,
			declaration_caissier, observations_superviseur, recidive, nb_ecarts_recidive, mesures_autres,
			declarant_matricule, declarant_role, ip_soumission, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`
	_, err := tx.ExecContext(ctx, query,
		uuid.UUID(d.ID),
		d.Ref,
		string(d.Statut),
		d.Niveau,
		d.AgenceCode,
		d.Caissier.Matricule,
		d.Caissier.Nom,
		nullString(d.Caissier.Grade),
		d.Caissier.Fonction,
		d.DateConstat,
		d.HeureConstat,
		nullString(d.HeureArrete),
		d.MontantDT,
		d.MontantMM,
		string(d.Nature),
		d.TypeCaisse,
		d.DeclarationCaissier,
		d.ObservationsSuperviseur,
		d.Recidive,
		nullInt(d.NbEcartsRecidive),
		nullString(d.MesuresAutres),
		d.DeclarantMatricule,
		d.DeclarantRole,
		nullString(d.IPSoumission),
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("declaration ref %s: %w", d.Ref, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert declaration: %w", err)
	}

	if len(d.Causes) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO decl_causes (declaration_id, cause)
			SELECT $1, unnest($2::text[])
			ON CONFLICT DO NOTHING
		`, uuid.UUID(d.ID), pq.Array(d.Causes))
		if err != nil {
			return fmt.Errorf("insert causes: %w", err)
		}
	}
	if len(d.Mesures) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO decl_mesures (declaration_id, mesure)
			SELECT $1, unnest($2::text[])
			ON CONFLICT DO NOTHING
		`, uuid.UUID(d.ID), pq.Array(d.Mesures))
		if err != nil {
			return fmt.Errorf("insert mesures: %w", err)
		}
	}
	return nil
}

const selectDeclaration = `
	SELECT d.id, d.ref, d.statut, d.niveau, d.agence_code, a.nom,
		   d.caissier_matricule, d.caissier_nom, COALESCE(d.caissier_grade, ''), d.caissier_fonction,
		   d.date_constat, d.heure_constat, COALESCE(d.heure_arrete, ''), d.montant_dt, d.montant_mm,
		   d.nature, d.type_caisse, d.declaration_caissier, d.observations_superviseur,
		   d.recidive, COALESCE(d.nb_ecarts_recidive, 0), COALESCE(d.mesures_autres, ''),
		   d.declarant_matricule, d.declarant_role, COALESCE(d.ip_soumission, ''),
		   d.statut_updated_at, COALESCE(d.statut_updated_by, ''),
		   COALESCE(d.cp_traite_par, ''), COALESCE(d.cp_n_dossier, ''), COALESCE(d.cp_commentaire, ''),
		   COALESCE(d.pdf_path, ''), d.created_at, d.updated_at
	FROM declarations d
	JOIN agences a ON a.code = d.agence_code
`

// FindByID returns the full declaration with causes and measures.
func (s *PostgresStore) FindByID(ctx context.Context, declID id.DeclarationID) (*models.Declaration, error) {
	return s.find(ctx, s.execer(ctx), selectDeclaration+` WHERE d.id = $1`, declID)
}

// FindForUpdate locks the declaration row until the ambient transaction ends.
func (s *PostgresStore) FindForUpdate(ctx context.Context, declID id.DeclarationID) (*models.Declaration, error) {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return nil, sentinel.ErrNoTransaction
	}
	return s.find(ctx, tx, selectDeclaration+` WHERE d.id = $1 FOR UPDATE OF d`, declID)
}

func (s *PostgresStore) find(ctx context.Context, exec dbExecutor, query string, declID id.DeclarationID) (*models.Declaration, error) {
	d, err := scanDeclaration(exec.QueryRowContext(ctx, query, uuid.UUID(declID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("declaration %s: %w", declID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find declaration: %w", err)
	}
	if d.Causes, err = s.loadStrings(ctx, exec, `SELECT cause FROM decl_causes WHERE declaration_id = $1 ORDER BY cause`, declID); err != nil {
		return nil, fmt.Errorf("load causes: %w", err)
	}
	if d.Mesures, err = s.loadStrings(ctx, exec, `SELECT mesure FROM decl_mesures WHERE declaration_id = $1 ORDER BY mesure`, declID); err != nil {
		return nil, fmt.Errorf("load mesures: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) loadStrings(ctx context.Context, exec dbExecutor, query string, declID id.DeclarationID) ([]string, error) {
	rows, err := exec.QueryContext(ctx, query, uuid.UUID(declID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateStatus writes the review fields of a declaration previously loaded
// with FindForUpdate.
func (s *PostgresStore) UpdateStatus(ctx context.Context, d *models.Declaration) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return sentinel.ErrNoTransaction
	}
	query := `
		UPDATE declarations SET
			statut = $2,
			statut_updated_at = $3,
			statut_updated_by = $4,
			cp_traite_par = $5,
			cp_n_dossier = $6,
			cp_commentaire = $7,
			updated_at = $8
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query,
		uuid.UUID(d.ID),
		string(d.Statut),
		nullTime(d.StatutUpdatedAt),
		nullString(d.StatutUpdatedBy),
		nullString(d.CPCentral.TraitePar),
		nullString(d.CPCentral.NDossier),
		nullString(d.CPCentral.Commentaire),
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update declaration status: %w", err)
	}
	return requireOneRow(res, d.ID)
}

// SetPDFPath records the archived PDF location. It is the archiver's only
// write and runs outside any request transaction.
func (s *PostgresStore) SetPDFPath(ctx context.Context, declID id.DeclarationID, path string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE declarations SET pdf_path = $2 WHERE id = $1`, uuid.UUID(declID), path)
	if err != nil {
		return fmt.Errorf("set pdf path: %w", err)
	}
	return requireOneRow(res, declID)
}

// List returns one page of summaries in the filter's order.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]models.Summary, error) {
	where, args := whereClause(filter)
	n := len(args)
	query := `
		SELECT d.id, d.ref, d.statut, d.niveau, d.created_at, d.montant_dt, d.montant_mm, d.nature,
			   d.agence_code, a.nom, d.caissier_matricule, d.caissier_nom
		FROM declarations d
		JOIN agences a ON a.code = d.agence_code
	` + where + orderBy(filter.Sort) + fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	out := []models.Summary{}
	for rows.Next() {
		var (
			sum    models.Summary
			declID uuid.UUID
			statut string
			nature string
		)
		if err := rows.Scan(&declID, &sum.Ref, &statut, &sum.Niveau, &sum.CreatedAt, &sum.MontantDT, &sum.MontantMM,
			&nature, &sum.AgenceCode, &sum.AgenceNom, &sum.CaissierMatricule, &sum.CaissierNom); err != nil {
			return nil, fmt.Errorf("scan declaration summary: %w", err)
		}
		sum.ID = id.DeclarationID(declID)
		sum.Statut = models.Status(statut)
		sum.Nature = models.Nature(nature)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate declarations: %w", err)
	}
	return out, nil
}

// Count returns how many declarations match the filter.
func (s *PostgresStore) Count(ctx context.Context, filter models.ListFilter) (int, error) {
	where, args := whereClause(filter)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM declarations d`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count declarations: %w", err)
	}
	return total, nil
}

func whereClause(f models.ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Agence != "" {
		add("d.agence_code = $%d", f.Agence)
	}
	if f.Statut != "" {
		add("d.statut = $%d", string(f.Statut))
	}
	if f.Niveau != 0 {
		add("d.niveau = $%d", f.Niveau)
	}
	if f.DateDebut != nil {
		add("d.date_constat >= $%d", *f.DateDebut)
	}
	if f.DateFin != nil {
		add("d.date_constat <= $%d", *f.DateFin)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderBy maps an allow-listed sort key to SQL. Keys never reach the query
// text unvalidated.
func orderBy(key models.SortKey) string {
	column := map[string]string{
		"created_at": "d.created_at",
		"montant":    "d.montant_dt, d.montant_mm",
		"niveau":     "d.niveau",
	}[key.Field()]
	if column == "" {
		column = "d.created_at"
	}
	dir := " ASC"
	if key.Descending() {
		dir = " DESC"
	}
	cols := strings.Split(column, ", ")
	for i := range cols {
		cols[i] += dir
	}
	return " ORDER BY " + strings.Join(cols, ", ") + ", d.id" + dir
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeclaration(row rowScanner) (*models.Declaration, error) {
	var (
		d              models.Declaration
		declID         uuid.UUID
		statut, nature string
		statutUpdated  sql.NullTime
	)
	err := row.Scan(&declID, &d.Ref, &statut, &d.Niveau, &d.AgenceCode, &d.AgenceNom,
		&d.Caissier.Matricule, &d.Caissier.Nom, &d.Caissier.Grade, &d.Caissier.Fonction,
		&d.DateConstat, &d.HeureConstat, &d.HeureArrete, &d.MontantDT, &d.MontantMM,
		&nature, &d.TypeCaisse, &d.DeclarationCaissier, &d.ObservationsSuperviseur,
		&d.Recidive, &d.NbEcartsRecidive, &d.MesuresAutres,
		&d.DeclarantMatricule, &d.DeclarantRole, &d.IPSoumission,
		&statutUpdated, &d.StatutUpdatedBy,
		&d.CPCentral.TraitePar, &d.CPCentral.NDossier, &d.CPCentral.Commentaire,
		&d.PDFPath, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DeclarationID(declID)
	d.Statut = models.Status(statut)
	d.Nature = models.Nature(nature)
	if statutUpdated.Valid {
		t := statutUpdated.Time
		d.StatutUpdatedAt = &t
	}
	return &d, nil
}

func requireOneRow(res sql.Result, declID id.DeclarationID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("declaration %s: %w", declID, sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
