// Package handler exposes the declaration lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cpcaisse/internal/access"
	"cpcaisse/internal/declaration/models"
	"cpcaisse/internal/declaration/service"
	id "cpcaisse/pkg/domain"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/platform/httputil"
	"cpcaisse/pkg/requestcontext"
)

// Service defines the declaration use cases used by the handler.
type Service interface {
	Create(ctx context.Context, identity access.Identity, req *models.CreateRequest) (*service.CreateResult, error)
	Transition(ctx context.Context, identity access.Identity, declID id.DeclarationID, req *models.TransitionRequest) (*models.Declaration, error)
	List(ctx context.Context, identity access.Identity, filter models.ListFilter) (*models.Page, error)
	Get(ctx context.Context, identity access.Identity, declID id.DeclarationID) (*models.Declaration, error)
	PDF(ctx context.Context, identity access.Identity, declID id.DeclarationID) (*service.ArchivedPDF, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the declaration routes. Callers must already be
// authenticated.
func (h *Handler) Register(r chi.Router) {
	filers := access.RequireRoles(h.logger, access.RoleCaissier, access.RoleSuperviseur, access.RoleCP, access.RoleAdmin)
	reviewers := access.RequireRoles(h.logger, access.RoleSuperviseur, access.RoleDirecteur, access.RoleCP, access.RoleAdmin)

	r.Route("/declarations", func(r chi.Router) {
		r.With(filers).Post("/", h.HandleCreate)
		r.With(reviewers).Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.With(reviewers).Patch("/{id}", h.HandleTransition)
		r.Get("/{id}/pdf", h.HandlePDF)
	})
}

// HandleCreate serves POST /declarations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Create(ctx, identity, req)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusCreated, toCreateResponse(result))
}

// HandleList serves GET /declarations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	q := httputil.NewQueryParser(r)
	filter := models.ListFilter{
		Agence:    q.String("agence"),
		Statut:    models.Status(strings.ToUpper(q.String("statut"))),
		Niveau:    q.Int("niveau"),
		DateDebut: q.Date("date_debut", false),
		DateFin:   q.Date("date_fin", true),
		Sort:      models.SortKey(q.String("sort")),
		Page:      q.Int("page"),
		Limit:     q.Int("limit"),
	}
	if err := q.Err(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	page, err := h.service.List(ctx, identity, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list declarations",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WritePage(w, r, toSummaryResponses(page.Items), httputil.NewPagination(page.Total, page.Page, page.Limit))
}

// HandleGet serves GET /declarations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	declID, ok := h.declarationID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Get(ctx, identity, declID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusOK, toDetailResponse(d))
}

// HandleTransition serves PATCH /declarations/{id}.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	declID, ok := h.declarationID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Transition(ctx, identity, declID, req)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusOK, TransitionResponse{ID: d.ID.String(), Statut: string(d.Statut)})
}

// HandlePDF serves GET /declarations/{id}/pdf inline.
func (h *Handler) HandlePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	declID, ok := h.declarationID(w, r)
	if !ok {
		return
	}

	pdf, err := h.service.PDF(ctx, identity, declID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	f, err := os.Open(pdf.Path)
	if err != nil {
		h.logger.WarnContext(ctx, "archived pdf vanished before streaming",
			"error", err,
			"path", pdf.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteFailure(w, r, http.StatusNotFound, "PDF_FILE_MISSING", "Fichier PDF introuvable sur le serveur.", nil)
		return
	}
	defer f.Close()

	modified := time.Time{}
	if info, err := f.Stat(); err == nil {
		modified = info.ModTime()
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+pdf.FileName+`"`)
	http.ServeContent(w, r, pdf.FileName, modified, f)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (access.Identity, bool) {
	identity, ok := access.FromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_MISSING", "Authentification requise.", nil)
	}
	return identity, ok
}

// declarationID parses the path id. A malformed id cannot exist, so it is
// answered like an unknown one.
func (h *Handler) declarationID(w http.ResponseWriter, r *http.Request) (id.DeclarationID, bool) {
	declID, err := id.ParseDeclarationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, dErrors.New(dErrors.CodeNotFound, "Déclaration introuvable."))
		return id.DeclarationID{}, false
	}
	return declID, true
}
