// Package models holds the declaration aggregate, its state machine and the
// severity rules applied at submission.
package models

import (
	"strings"
	"time"

	id "cpcaisse/pkg/domain"
	"cpcaisse/pkg/email"
)

// Nature tells whether the till was short or over.
type Nature string

const (
	NatureManquant Nature = "MANQUANT"
	NatureExcedent Nature = "EXCEDENT"
)

// Caissier identifies the cashier concerned by the discrepancy.
type Caissier struct {
	Matricule string
	Nom       string
	Grade     string
	Fonction  string
}

// CaseProcessing holds the fields central reviewers annotate.
type CaseProcessing struct {
	TraitePar   string
	NDossier    string
	Commentaire string
}

// IsEmpty reports whether no annotation carries a value.
func (c CaseProcessing) IsEmpty() bool {
	return c.TraitePar == "" && c.NDossier == "" && c.Commentaire == ""
}

// Declaration is the aggregate root. Its status only moves through
// Status.CanTransitionTo and it is never deleted.
type Declaration struct {
	ID         id.DeclarationID
	Ref        string
	Statut     Status
	Niveau     int
	AgenceCode string
	// AgenceNom is read from the agency directory, never written.
	AgenceNom string

	Caissier     Caissier
	DateConstat  time.Time
	HeureConstat string
	HeureArrete  string
	MontantDT    int64
	MontantMM    int
	Nature       Nature
	TypeCaisse   string

	DeclarationCaissier     string
	ObservationsSuperviseur string
	Causes                  []string
	Mesures                 []string
	MesuresAutres           string

	Recidive         bool
	NbEcartsRecidive int

	DeclarantMatricule string
	DeclarantRole      string
	IPSoumission       string

	StatutUpdatedAt *time.Time
	StatutUpdatedBy string
	CPCentral       CaseProcessing
	PDFPath         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so snapshots handed to side effects cannot alias
// store state.
func (d *Declaration) Clone() *Declaration {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Causes = append([]string(nil), d.Causes...)
	cp.Mesures = append([]string(nil), d.Mesures...)
	if d.StatutUpdatedAt != nil {
		t := *d.StatutUpdatedAt
		cp.StatutUpdatedAt = &t
	}
	return &cp
}

// NewReference builds the human-readable reference DC-YYYYMMDD-XXXXXXXX from
// the creation date and the first eight characters of the id.
func NewReference(createdAt time.Time, declID id.DeclarationID) string {
	return "DC-" + createdAt.UTC().Format("20060102") + "-" + strings.ToUpper(declID.String()[:8])
}

// Summary is the listing projection of a declaration.
type Summary struct {
	ID                id.DeclarationID
	Ref               string
	Statut            Status
	Niveau            int
	CreatedAt         time.Time
	MontantDT         int64
	MontantMM         int
	Nature            Nature
	AgenceCode        string
	AgenceNom         string
	CaissierMatricule string
	CaissierNom       string
}

// Summarize projects a declaration onto its listing row.
func (d *Declaration) Summarize() Summary {
	return Summary{
		ID:                d.ID,
		Ref:               d.Ref,
		Statut:            d.Statut,
		Niveau:            d.Niveau,
		CreatedAt:         d.CreatedAt,
		MontantDT:         d.MontantDT,
		MontantMM:         d.MontantMM,
		Nature:            d.Nature,
		AgenceCode:        d.AgenceCode,
		AgenceNom:         d.AgenceNom,
		CaissierMatricule: d.Caissier.Matricule,
		CaissierNom:       d.Caissier.Nom,
	}
}

// Recipients of the creation notice: the region's permanent-control mailbox
// and the agency director.
type Recipients struct {
	AgenceNom string
	Region    string
	CPEmail   string
	DirEmail  string
}

// Addresses lists the usable recipient addresses, CP first.
func (r Recipients) Addresses() []string {
	return email.NormalizeRecipients(r.CPEmail, r.DirEmail)
}
