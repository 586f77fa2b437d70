// Package handler exposes the read side of the audit trail.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cpcaisse/internal/access"
	"cpcaisse/internal/audit/models"
	auditservice "cpcaisse/internal/audit/service"
	id "cpcaisse/pkg/domain"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/platform/httputil"
	"cpcaisse/pkg/requestcontext"
)

// Service defines the audit queries used by the handler.
type Service interface {
	ListByDeclaration(ctx context.Context, identity access.Identity, declID id.DeclarationID) ([]models.Event, error)
	List(ctx context.Context, filter models.ListFilter) (*auditservice.Page, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the audit routes. Callers must already be authenticated.
func (h *Handler) Register(r chi.Router) {
	r.With(access.RequireRoles(h.logger, access.RoleCP, access.RoleAdmin)).Get("/audit", h.HandleList)
	r.Get("/audit/declaration/{id}", h.HandleListByDeclaration)
}

// EventResponse is the wire shape of one audit row.
type EventResponse struct {
	ID              string         `json:"id"`
	DeclarationID   *string        `json:"declaration_id"`
	DeclarationRef  string         `json:"declaration_ref,omitempty"`
	ActeurMatricule string         `json:"acteur_matricule"`
	ActeurRole      string         `json:"acteur_role"`
	Action          string         `json:"action"`
	AncienStatut    *string        `json:"ancien_statut"`
	NouveauStatut   *string        `json:"nouveau_statut"`
	IPAddress       string         `json:"ip_address,omitempty"`
	Details         map[string]any `json:"details"`
	TimestampSrv    time.Time      `json:"timestamp_srv"`
}

func toResponse(e models.Event) EventResponse {
	resp := EventResponse{
		ID:              e.ID.String(),
		DeclarationRef:  e.DeclarationRef,
		ActeurMatricule: e.ActorMatricule,
		ActeurRole:      e.ActorRole,
		Action:          string(e.Action),
		AncienStatut:    optional(e.PriorStatus),
		NouveauStatut:   optional(e.NewStatus),
		IPAddress:       e.IPAddress,
		Details:         e.Details,
		TimestampSrv:    e.Timestamp,
	}
	if e.DeclarationID != nil {
		s := e.DeclarationID.String()
		resp.DeclarationID = &s
	}
	return resp
}

func toResponses(events []models.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e))
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// HandleList serves GET /audit, the global journal newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := httputil.NewQueryParser(r)

	filter := models.ListFilter{
		Matricule: q.String("matricule"),
		Action:    models.NormalizeAction(q.String("action")),
		DateDebut: q.Date("date_debut", false),
		DateFin:   q.Date("date_fin", true),
		Page:      q.Int("page"),
		Limit:     q.Int("limit"),
	}
	if raw := q.String("declaration_id"); raw != "" {
		declID, err := id.ParseDeclarationID(raw)
		if err != nil {
			httputil.WriteError(w, r, dErrors.WithDetails(dErrors.New(dErrors.CodeValidation, "Paramètres de requête invalides."),
				[]dErrors.FieldError{{Field: "declaration_id", Message: err.Error()}}))
			return
		}
		filter.DeclarationID = &declID
	}
	if err := q.Err(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	page, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit journal",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WritePage(w, r, toResponses(page.Events), httputil.NewPagination(page.Total, page.Page, page.Limit))
}

// HandleListByDeclaration serves GET /audit/declaration/{id}, oldest first.
func (h *Handler) HandleListByDeclaration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := access.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, r, dErrors.New(dErrors.CodeUnauthorized, "Authentification requise."))
		return
	}
	declID, err := id.ParseDeclarationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, dErrors.NewRule(dErrors.CodeNotFound, "NOT_FOUND", "Déclaration introuvable."))
		return
	}

	events, err := h.service.ListByDeclaration(ctx, identity, declID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusOK, toResponses(events))
}
