// Package store persists audit events. Writes always join the ambient
// transaction of the change they document.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cpcaisse/internal/audit/models"
	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
)

// PostgresStore reads and appends audit_log rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer returns the ambient transaction. There is no fallback to the pool:
// an audit row committed on its own would break the one-to-one pairing with
// the change it documents.
func (s *PostgresStore) execer(ctx context.Context) (dbExecutor, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return tx, nil
	}
	return nil, sentinel.ErrNoTransaction
}

// Append inserts one event inside the ambient transaction.
func (s *PostgresStore) Append(ctx context.Context, event models.Event) error {
	exec, err := s.execer(ctx)
	if err != nil {
		return err
	}

	details, err := json.Marshal(detailsOrEmpty(event.Details))
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var declID *uuid.UUID
	if event.DeclarationID != nil {
		u := uuid.UUID(*event.DeclarationID)
		declID = &u
	}

	query := `
		INSERT INTO audit_log (
			id, declaration_id, acteur_matricule, acteur_role, action,
			ancien_statut, nouveau_statut, ip_address, details, timestamp_srv
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = exec.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		declID,
		event.ActorMatricule,
		event.ActorRole,
		string(event.Action),
		nullString(event.PriorStatus),
		nullString(event.NewStatus),
		nullString(event.IPAddress),
		details,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectEvents = `
	SELECT al.id, al.declaration_id, COALESCE(d.ref, ''), al.acteur_matricule, al.acteur_role,
		   al.action, COALESCE(al.ancien_statut, ''), COALESCE(al.nouveau_statut, ''),
		   COALESCE(al.ip_address, ''), al.details, al.timestamp_srv
	FROM audit_log al
	LEFT JOIN declarations d ON d.id = al.declaration_id
`

// ListByDeclaration returns a declaration's events in commit order.
func (s *PostgresStore) ListByDeclaration(ctx context.Context, declID id.DeclarationID) ([]models.Event, error) {
	query := selectEvents + `
		WHERE al.declaration_id = $1
		ORDER BY al.seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(declID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// List returns one page of the global journal, newest first.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]models.Event, error) {
	where, args := whereClause(filter)
	n := len(args)
	query := selectEvents + where + fmt.Sprintf(`
		ORDER BY al.timestamp_srv DESC, al.seq DESC
		LIMIT $%d OFFSET $%d
	`, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// Count returns how many events match the filter.
func (s *PostgresStore) Count(ctx context.Context, filter models.ListFilter) (int, error) {
	where, args := whereClause(filter)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log al`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
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
	if f.DeclarationID != nil {
		add("al.declaration_id = $%d", uuid.UUID(*f.DeclarationID))
	}
	if f.Matricule != "" {
		add("al.acteur_matricule = $%d", f.Matricule)
	}
	if f.Action != "" {
		add("al.action = $%d", string(f.Action))
	}
	if f.DateDebut != nil {
		add("al.timestamp_srv >= $%d", *f.DateDebut)
	}
	if f.DateFin != nil {
		add("al.timestamp_srv <= $%d", *f.DateFin)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PostgresStore) scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		var (
			e       models.Event
			eventID uuid.UUID
			declID  uuid.NullUUID
			action  string
			details []byte
		)
		if err := rows.Scan(&eventID, &declID, &e.DeclarationRef, &e.ActorMatricule, &e.ActorRole,
			&action, &e.PriorStatus, &e.NewStatus, &e.IPAddress, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.AuditEventID(eventID)
		e.Action = models.Action(action)
		if declID.Valid {
			d := id.DeclarationID(declID.UUID)
			e.DeclarationID = &d
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func detailsOrEmpty(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
