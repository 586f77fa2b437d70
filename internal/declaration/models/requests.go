package models

import (
	"errors"
	"strings"

	dErrors "cpcaisse/pkg/domain-errors"
	s "cpcaisse/pkg/platform/strings"
	"cpcaisse/pkg/validation"
)

// AgenceInput identifies the agency the declaration is filed for.
type AgenceInput struct {
	Code   string `json:"code" validate:"required,agencycode"`
	Region string `json:"region" validate:"omitempty,max=60"`
}

type CaissierInput struct {
	Matricule     string `json:"matricule" validate:"required,notblank,max=20"`
	Nom           string `json:"nom" validate:"required,min=2,max=100"`
	Grade         string `json:"grade" validate:"omitempty,max=40"`
	Fonction      string `json:"fonction" validate:"required,oneof='Caissier Principal' 'Caissier Adjoint' 'Stagiaire Caissier' 'Autre'"`
	FonctionAutre string `json:"fonctionAutre" validate:"omitempty,max=60"`
}

type EcartInput struct {
	DateConstat  string `json:"date_constat" validate:"required,isodate"`
	HeureConstat string `json:"heure_constat" validate:"required,hhmm"`
	HeureArrete  string `json:"heure_arrete" validate:"omitempty,hhmm"`
	MontantDT    *int64 `json:"montant_dt" validate:"required,min=0"`
	MontantMM    *int   `json:"montant_mm" validate:"omitempty,min=0,max=999"`
	Nature       string `json:"nature" validate:"required,oneof=MANQUANT EXCEDENT"`
	TypeCaisse   string `json:"type_caisse" validate:"required,notblank,max=50"`
	CaisseAutre  string `json:"caisseAutre" validate:"omitempty,max=60"`
}

type CirconstancesInput struct {
	DeclarationCaissier string   `json:"declaration_caissier" validate:"required,min=20,max=2000"`
	ObservationsSup     string   `json:"observations_sup" validate:"required,min=10,max=2000"`
	Causes              []string `json:"causes" validate:"required,min=1,dive,notblank"`
}

type MesuresInput struct {
	Actions []string `json:"actions" validate:"omitempty,dive,notblank"`
	Autres  string   `json:"autres" validate:"omitempty,max=500"`
}

type RecidiveInput struct {
	Oui      *bool `json:"oui" validate:"required"`
	NbEcarts *int  `json:"nb_ecarts" validate:"omitempty,min=1"`
}

// CreateRequest is the declaration submission schema.
type CreateRequest struct {
	Agence        *AgenceInput        `json:"agence" validate:"required"`
	Caissier      *CaissierInput      `json:"caissier" validate:"required"`
	Ecart         *EcartInput         `json:"ecart" validate:"required"`
	Niveau        *int                `json:"niveau" validate:"required,min=1,max=4"`
	Circonstances *CirconstancesInput `json:"circonstances" validate:"required"`
	Mesures       *MesuresInput       `json:"mesures"`
	Recidive      *RecidiveInput      `json:"recidive" validate:"required"`
	RefClient     string              `json:"ref_client" validate:"omitempty,max=60"`
}

// Sanitize trims free text and dedupes tag lists.
func (r *CreateRequest) Sanitize() {
	if r.Agence != nil {
		r.Agence.Code = strings.TrimSpace(r.Agence.Code)
	}
	if r.Caissier != nil {
		r.Caissier.Matricule = strings.TrimSpace(r.Caissier.Matricule)
		r.Caissier.Nom = strings.TrimSpace(r.Caissier.Nom)
		r.Caissier.Grade = strings.TrimSpace(r.Caissier.Grade)
	}
	if r.Ecart != nil {
		r.Ecart.TypeCaisse = strings.TrimSpace(r.Ecart.TypeCaisse)
	}
	if r.Circonstances != nil {
		r.Circonstances.Causes = s.DedupeAndTrim(r.Circonstances.Causes)
	}
	if r.Mesures != nil {
		r.Mesures.Actions = s.DedupeAndTrim(r.Mesures.Actions)
		r.Mesures.Autres = strings.TrimSpace(r.Mesures.Autres)
	}
	r.RefClient = strings.TrimSpace(r.RefClient)
}

// Validate checks the schema. The recurrence count is required only when
// recurrence is flagged, which the tag language cannot express on pointers.
func (r *CreateRequest) Validate() error {
	var fields []dErrors.FieldError
	if err := validation.Validate(r); err != nil {
		var de *dErrors.Error
		if !errors.As(err, &de) {
			return err
		}
		if fields, _ = de.Details.([]dErrors.FieldError); fields == nil {
			return err
		}
	}
	if r.Recidive != nil && r.Recidive.Oui != nil && *r.Recidive.Oui && r.Recidive.NbEcarts == nil {
		fields = append(fields, dErrors.FieldError{Field: "recidive.nb_ecarts", Message: "recidive.nb_ecarts is required"})
	}
	if len(fields) == 0 {
		return nil
	}
	return dErrors.WithDetails(dErrors.New(dErrors.CodeValidation, "Données invalides."), fields)
}

// MontantMM returns the millimes, 0 when omitted.
func (r *CreateRequest) MontantMM() int {
	if r.Ecart == nil || r.Ecart.MontantMM == nil {
		return 0
	}
	return *r.Ecart.MontantMM
}

// IsRecurrence reports whether recurrence is flagged.
func (r *CreateRequest) IsRecurrence() bool {
	return r.Recidive != nil && r.Recidive.Oui != nil && *r.Recidive.Oui
}

// TransitionRequest moves a declaration and/or annotates its case processing.
type TransitionRequest struct {
	Statut    string               `json:"statut"`
	CPCentral *CaseProcessingInput `json:"cp_central"`
}

type CaseProcessingInput struct {
	TraitePar   string `json:"traite_par" validate:"omitempty,max=100"`
	NDossier    string `json:"n_dossier" validate:"omitempty,max=60"`
	Commentaire string `json:"commentaire" validate:"omitempty,max=2000"`
}

func (r *TransitionRequest) Sanitize() {
	r.Statut = strings.TrimSpace(r.Statut)
	if r.CPCentral != nil {
		r.CPCentral.TraitePar = strings.TrimSpace(r.CPCentral.TraitePar)
		r.CPCentral.NDossier = strings.TrimSpace(r.CPCentral.NDossier)
		r.CPCentral.Commentaire = strings.TrimSpace(r.CPCentral.Commentaire)
	}
}

// Validate rejects unknown status names. Emptiness is the service's call.
func (r *TransitionRequest) Validate() error {
	if r.Statut != "" {
		if _, ok := ParseStatus(r.Statut); !ok {
			return dErrors.WithDetails(dErrors.New(dErrors.CodeValidation, "Données invalides."),
				[]dErrors.FieldError{{Field: "statut", Message: "statut must be one of [SOUMIS EN_COURS EN_ENQUETE VALIDE REJETE CLOTURE]"}})
		}
	}
	return validation.Validate(r)
}

// CaseProcessing returns the annotations carried by the request.
func (r *TransitionRequest) CaseProcessing() CaseProcessing {
	if r.CPCentral == nil {
		return CaseProcessing{}
	}
	return CaseProcessing{
		TraitePar:   r.CPCentral.TraitePar,
		NDossier:    r.CPCentral.NDossier,
		Commentaire: r.CPCentral.Commentaire,
	}
}
