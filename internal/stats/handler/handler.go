// Package handler serves the statistics dashboard.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cpcaisse/internal/access"
	"cpcaisse/internal/stats/models"
	"cpcaisse/pkg/platform/httputil"
)

type Service interface {
	Dashboard(ctx context.Context, identity access.Identity, q models.Query) (*models.Dashboard, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts GET /stats for CP, ADMIN and DIRECTEUR.
func (h *Handler) Register(r chi.Router) {
	r.With(access.RequireRoles(h.logger, access.RoleDirecteur, access.RoleCP, access.RoleAdmin)).
		Get("/stats", h.HandleDashboard)
}

type PeriodResponse struct {
	Annee int `json:"annee"`
	Mois  int `json:"mois"`
}

// Amounts are exact decimals rendered with three places, as strings.
type TotalsResponse struct {
	Total        int    `json:"total"`
	N4           int    `json:"n4"`
	Recidives    int    `json:"recidives"`
	MontantTotal string `json:"montant_total"`
	MontantMoyen string `json:"montant_moyen"`
	Clotures     int    `json:"clotures"`
	EnCours      int    `json:"en_cours"`
}

type LevelResponse struct {
	Niveau  int    `json:"niveau"`
	Nb      int    `json:"nb"`
	Montant string `json:"montant"`
}

type StatusResponse struct {
	Statut string `json:"statut"`
	Nb     int    `json:"nb"`
}

type RegionResponse struct {
	Region  string `json:"region"`
	Nb      int    `json:"nb"`
	Montant string `json:"montant"`
}

type DayResponse struct {
	Jour      string `json:"jour"`
	Manquants int    `json:"manquants"`
	Excedents int    `json:"excedents"`
}

type DashboardResponse struct {
	Periode   PeriodResponse   `json:"periode"`
	Totaux    TotalsResponse   `json:"totaux"`
	ParNiveau []LevelResponse  `json:"parNiveau"`
	ParStatut []StatusResponse `json:"parStatut"`
	ParRegion []RegionResponse `json:"parRegion"`
	Evolution []DayResponse    `json:"evolution"`
}

// HandleDashboard serves GET /stats?annee=&mois=&agence=.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := access.FromContext(ctx)
	if !ok {
		httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_MISSING", "Authentification requise.", nil)
		return
	}

	q := httputil.NewQueryParser(r)
	query := models.Query{
		Annee:  q.Int("annee"),
		Mois:   q.Int("mois"),
		Agence: q.String("agence"),
	}
	if err := q.Err(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	d, err := h.service.Dashboard(ctx, identity, query)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusOK, toResponse(d))
}

func toResponse(d *models.Dashboard) DashboardResponse {
	out := DashboardResponse{
		Periode: PeriodResponse{Annee: d.Annee, Mois: d.Mois},
		Totaux: TotalsResponse{
			Total:        d.Totaux.Total,
			N4:           d.Totaux.N4,
			Recidives:    d.Totaux.Recidives,
			MontantTotal: d.Totaux.MontantTotal.StringFixed(3),
			MontantMoyen: d.Totaux.MontantMoyen.StringFixed(3),
			Clotures:     d.Totaux.Clotures,
			EnCours:      d.Totaux.EnCours,
		},
		ParNiveau: make([]LevelResponse, 0, len(d.ParNiveau)),
		ParStatut: make([]StatusResponse, 0, len(d.ParStatut)),
		ParRegion: make([]RegionResponse, 0, len(d.ParRegion)),
		Evolution: make([]DayResponse, 0, len(d.Evolution)),
	}
	for _, b := range d.ParNiveau {
		out.ParNiveau = append(out.ParNiveau, LevelResponse{Niveau: b.Niveau, Nb: b.Nb, Montant: b.Montant.StringFixed(3)})
	}
	for _, b := range d.ParStatut {
		out.ParStatut = append(out.ParStatut, StatusResponse{Statut: b.Statut, Nb: b.Nb})
	}
	for _, b := range d.ParRegion {
		out.ParRegion = append(out.ParRegion, RegionResponse{Region: b.Region, Nb: b.Nb, Montant: b.Montant.StringFixed(3)})
	}
	for _, b := range d.Evolution {
		out.Evolution = append(out.Evolution, DayResponse{Jour: b.Jour.Format(time.DateOnly), Manquants: b.Manquants, Excedents: b.Excedents})
	}
	return out
}
