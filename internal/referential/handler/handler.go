// Package handler exposes reference data to authenticated callers.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cpcaisse/internal/access"
	"cpcaisse/internal/referential/models"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/platform/httputil"
	"cpcaisse/pkg/requestcontext"
)

type Service interface {
	ListActive(ctx context.Context) ([]models.Agency, error)
	Upsert(ctx context.Context, actor access.Identity, req *models.UpsertRequest) (*models.Agency, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the reference routes. Callers must already be authenticated.
func (h *Handler) Register(r chi.Router) {
	r.Route("/referentiels", func(r chi.Router) {
		r.Get("/agences", h.HandleListAgencies)
		r.With(access.RequireRoles(h.logger, access.RoleAdmin)).Post("/agences", h.HandleUpsertAgency)
		r.Get("/causes", h.HandleCauses)
		r.Get("/types-caisse", h.HandleTypesCaisse)
	})
}

// AgencyResponse hides the region's mailbox from callers.
type AgencyResponse struct {
	Code     string `json:"code"`
	Nom      string `json:"nom"`
	DirEmail string `json:"dir_email"`
	Region   string `json:"region"`
}

func (h *Handler) HandleListAgencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencies, err := h.service.ListActive(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list agencies",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, r, err)
		return
	}
	out := make([]AgencyResponse, 0, len(agencies))
	for _, a := range agencies {
		out = append(out, AgencyResponse{Code: a.Code, Nom: a.Nom, DirEmail: a.DirEmail, Region: a.Region})
	}
	httputil.WriteData(w, r, http.StatusOK, out)
}

func (h *Handler) HandleUpsertAgency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := access.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, r, dErrors.New(dErrors.CodeUnauthorized, "Authentification requise."))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpsertRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	agency, err := h.service.Upsert(ctx, actor, req)
	if err != nil {
		h.logger.WarnContext(ctx, "agency upsert failed",
			"error", err,
			"code", req.Code,
			"request_id", requestID,
		)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusCreated, map[string]string{"code": agency.Code, "nom": agency.Nom})
}

func (h *Handler) HandleCauses(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, r, http.StatusOK, models.Causes)
}

func (h *Handler) HandleTypesCaisse(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, r, http.StatusOK, models.TypesCaisse)
}
