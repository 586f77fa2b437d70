// Package models defines the append-only audit trail of declaration changes.
package models

import (
	"strings"
	"time"

	id "cpcaisse/pkg/domain"
)

// Action names what a recorded change did.
type Action string

const (
	ActionCreation         Action = "CREATION"
	ActionChangementStatut Action = "CHANGEMENT_STATUT"
	ActionModification     Action = "MODIFICATION"
	// ActionReferentielMaj records an agency upsert; it has no declaration.
	ActionReferentielMaj Action = "REFERENTIEL_MAJ"
)

// Event is one immutable audit row. It is written in the same transaction as
// the change it documents and never updated afterwards.
type Event struct {
	ID             id.AuditEventID
	DeclarationID  *id.DeclarationID
	DeclarationRef string
	ActorMatricule string
	ActorRole      string
	Action         Action
	PriorStatus    string
	NewStatus      string
	IPAddress      string
	Details        map[string]any
	Timestamp      time.Time
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListFilter selects events for the global journal, newest first.
type ListFilter struct {
	DeclarationID *id.DeclarationID
	Matricule     string
	Action        Action
	DateDebut     *time.Time
	DateFin       *time.Time
	Page          int
	Limit         int
}

// NormalizeAction upper-cases a caller supplied action filter.
func NormalizeAction(raw string) Action {
	return Action(strings.ToUpper(strings.TrimSpace(raw)))
}

// Normalize clamps page to at least 1 and limit to [1, MaxListLimit].
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	f.Limit = min(max(f.Limit, 1), MaxListLimit)
}

// Offset is the number of rows skipped before the page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches applies the filter predicates to one event.
func (f ListFilter) Matches(e Event) bool {
	if f.DeclarationID != nil && (e.DeclarationID == nil || *e.DeclarationID != *f.DeclarationID) {
		return false
	}
	if f.Matricule != "" && e.ActorMatricule != f.Matricule {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.DateDebut != nil && e.Timestamp.Before(*f.DateDebut) {
		return false
	}
	if f.DateFin != nil && e.Timestamp.After(*f.DateFin) {
		return false
	}
	return true
}
