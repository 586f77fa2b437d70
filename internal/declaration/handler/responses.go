package handler

import (
	"time"

	"cpcaisse/internal/declaration/models"
	"cpcaisse/internal/declaration/service"
)

type NotificationResponse struct {
	Envoyee       bool     `json:"envoyee"`
	Destinataires []string `json:"destinataires"`
}

type CreateResponse struct {
	ID            string               `json:"id"`
	Ref           string               `json:"ref"`
	Statut        string               `json:"statut"`
	Niveau        int                  `json:"niveau"`
	HorodatageSrv time.Time            `json:"horodatage_srv"`
	PDFURL        string               `json:"pdf_url"`
	Notification  NotificationResponse `json:"notification"`
}

func pdfURL(declID string) string {
	return "/api/v1/declarations/" + declID + "/pdf"
}

func toCreateResponse(result *service.CreateResult) CreateResponse {
	d := result.Declaration
	recipients := result.Notification.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	return CreateResponse{
		ID:            d.ID.String(),
		Ref:           d.Ref,
		Statut:        string(d.Statut),
		Niveau:        d.Niveau,
		HorodatageSrv: d.CreatedAt,
		PDFURL:        pdfURL(d.ID.String()),
		Notification: NotificationResponse{
			Envoyee:       result.Notification.Sent,
			Destinataires: recipients,
		},
	}
}

type TransitionResponse struct {
	ID     string `json:"id"`
	Statut string `json:"statut"`
}

// SummaryResponse is one listing row.
type SummaryResponse struct {
	ID                string    `json:"id"`
	Ref               string    `json:"ref"`
	Statut            string    `json:"statut"`
	Niveau            int       `json:"niveau"`
	CreatedAt         time.Time `json:"created_at"`
	MontantDT         int64     `json:"montant_dt"`
	MontantMM         int       `json:"montant_mm"`
	Nature            string    `json:"nature"`
	AgenceCode        string    `json:"agence_code"`
	AgenceNom         string    `json:"agence_nom"`
	CaissierMatricule string    `json:"caissier_matricule"`
	CaissierNom       string    `json:"caissier_nom"`
}

func toSummaryResponses(items []models.Summary) []SummaryResponse {
	out := make([]SummaryResponse, 0, len(items))
	for _, s := range items {
		out = append(out, SummaryResponse{
			ID:                s.ID.String(),
			Ref:               s.Ref,
			Statut:            string(s.Statut),
			Niveau:            s.Niveau,
			CreatedAt:         s.CreatedAt,
			MontantDT:         s.MontantDT,
			MontantMM:         s.MontantMM,
			Nature:            string(s.Nature),
			AgenceCode:        s.AgenceCode,
			AgenceNom:         s.AgenceNom,
			CaissierMatricule: s.CaissierMatricule,
			CaissierNom:       s.CaissierNom,
		})
	}
	return out
}

type CPCentralResponse struct {
	TraitePar   string `json:"traite_par"`
	NDossier    string `json:"n_dossier"`
	Commentaire string `json:"commentaire"`
}

// DetailResponse is the full declaration. The archive location on disk is
// never exposed; clients follow pdf_url.
type DetailResponse struct {
	ID                  string            `json:"id"`
	Ref                 string            `json:"ref"`
	Statut              string            `json:"statut"`
	Niveau              int               `json:"niveau"`
	AgenceCode          string            `json:"agence_code"`
	AgenceNom           string            `json:"agence_nom"`
	CaissierMatricule   string            `json:"caissier_matricule"`
	CaissierNom         string            `json:"caissier_nom"`
	CaissierGrade       string            `json:"caissier_grade"`
	CaissierFonction    string            `json:"caissier_fonction"`
	DateConstat         string            `json:"date_constat"`
	HeureConstat        string            `json:"heure_constat"`
	HeureArrete         string            `json:"heure_arrete,omitempty"`
	MontantDT           int64             `json:"montant_dt"`
	MontantMM           int               `json:"montant_mm"`
	Montant             string            `json:"montant"`
	Nature              string            `json:"nature"`
	TypeCaisse          string            `json:"type_caisse"`
	DeclarationCaissier string            `json:"declaration_caissier"`
	ObservationsSup     string            `json:"observations_sup"`
	Causes              []string          `json:"causes"`
	Mesures             []string          `json:"mesures"`
	MesuresAutres       string            `json:"mesures_autres,omitempty"`
	Recidive            bool              `json:"recidive"`
	NbEcartsRecidive    int               `json:"nb_ecarts_recidive,omitempty"`
	DeclarantMatricule  string            `json:"declarant_matricule"`
	DeclarantRole       string            `json:"declarant_role"`
	StatutUpdatedAt     *time.Time        `json:"statut_updated_at"`
	StatutUpdatedBy     string            `json:"statut_updated_by,omitempty"`
	CPCentral           CPCentralResponse `json:"cp_central"`
	PDFDisponible       bool              `json:"pdf_disponible"`
	PDFURL              string            `json:"pdf_url"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func toDetailResponse(d *models.Declaration) DetailResponse {
	causes, mesures := d.Causes, d.Mesures
	if causes == nil {
		causes = []string{}
	}
	if mesures == nil {
		mesures = []string{}
	}
	return DetailResponse{
		ID:                  d.ID.String(),
		Ref:                 d.Ref,
		Statut:              string(d.Statut),
		Niveau:              d.Niveau,
		AgenceCode:          d.AgenceCode,
		AgenceNom:           d.AgenceNom,
		CaissierMatricule:   d.Caissier.Matricule,
		CaissierNom:         d.Caissier.Nom,
		CaissierGrade:       d.Caissier.Grade,
		CaissierFonction:    d.Caissier.Fonction,
		DateConstat:         d.DateConstat.Format(time.DateOnly),
		HeureConstat:        d.HeureConstat,
		HeureArrete:         d.HeureArrete,
		MontantDT:           d.MontantDT,
		MontantMM:           d.MontantMM,
		Montant:             models.FormatAmount(d.MontantDT, d.MontantMM),
		Nature:              string(d.Nature),
		TypeCaisse:          d.TypeCaisse,
		DeclarationCaissier: d.DeclarationCaissier,
		ObservationsSup:     d.ObservationsSuperviseur,
		Causes:              causes,
		Mesures:             mesures,
		MesuresAutres:       d.MesuresAutres,
		Recidive:            d.Recidive,
		NbEcartsRecidive:    d.NbEcartsRecidive,
		DeclarantMatricule:  d.DeclarantMatricule,
		DeclarantRole:       d.DeclarantRole,
		StatutUpdatedAt:     d.StatutUpdatedAt,
		StatutUpdatedBy:     d.StatutUpdatedBy,
		CPCentral: CPCentralResponse{
			TraitePar:   d.CPCentral.TraitePar,
			NDossier:    d.CPCentral.NDossier,
			Commentaire: d.CPCentral.Commentaire,
		},
		PDFDisponible: d.PDFPath != "",
		PDFURL:        pdfURL(d.ID.String()),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
