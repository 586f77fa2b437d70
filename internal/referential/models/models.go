// Package models holds the reference data declarations are filed against:
// agencies, their region and the fixed cause and till lists.
package models

import (
	"strings"

	"cpcaisse/pkg/validation"
)

// Agency is an active or retired branch. Region and CPEmail come from the
// agency's region and address the permanent-control mailbox.
type Agency struct {
	Code     string `json:"code"`
	Nom      string `json:"nom"`
	DirEmail string `json:"dir_email"`
	RegionID int    `json:"region_id"`
	Region   string `json:"region"`
	CPEmail  string `json:"cp_email"`
	Actif    bool   `json:"actif"`
}

// Causes is the fixed list of discrepancy causes offered to declarants.
var Causes = []string{
	"Erreur de comptage",
	"Billet de valeur non détecté",
	"Faux billet",
	"Omission de saisie",
	"Double saisie",
	"Erreur de change devises",
	"Vol ou disparition",
	"Incident technique TPE",
	"Autre (préciser)",
}

// TypesCaisse is the fixed list of till types.
var TypesCaisse = []string{
	"Caisse DT Principale",
	"Caisse Devises",
	"Caisse GAB/DAB",
	"Caisse Coffre",
	"Caisse Monnaie",
	"Autre",
}

// UpsertRequest creates or replaces an agency. The agency is always active afterwards.
type UpsertRequest struct {
	Code     string `json:"code" validate:"required,agencycode"`
	Nom      string `json:"nom" validate:"required,notblank,max=100"`
	RegionID int    `json:"region_id" validate:"required,min=1"`
	DirEmail string `json:"dir_email" validate:"omitempty,email,max=120"`
}

func (r *UpsertRequest) Sanitize() {
	r.Code = strings.TrimSpace(r.Code)
	r.Nom = strings.TrimSpace(r.Nom)
	r.DirEmail = strings.ToLower(strings.TrimSpace(r.DirEmail))
}

func (r *UpsertRequest) Validate() error {
	return validation.Validate(r)
}

// Agency returns the active agency the request describes.
func (r *UpsertRequest) Agency() Agency {
	return Agency{
		Code:     r.Code,
		Nom:      r.Nom,
		RegionID: r.RegionID,
		DirEmail: r.DirEmail,
		Actif:    true,
	}
}
