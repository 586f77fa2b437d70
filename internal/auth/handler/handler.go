// Package handler exposes login, logout and the current agent profile.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cpcaisse/internal/access"
	"cpcaisse/internal/auth/models"
	"cpcaisse/internal/auth/service"
	"cpcaisse/pkg/platform/httputil"
	authmw "cpcaisse/pkg/platform/middleware/auth"
	"cpcaisse/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, req *models.LoginRequest) (*service.LoginResult, error)
	Logout(ctx context.Context, claims *authmw.Claims) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the routes reachable without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

// Register mounts the routes that need a verified token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
}

type UserResponse struct {
	Matricule string  `json:"matricule"`
	Nom       string  `json:"nom"`
	Role      string  `json:"role"`
	Agence    *string `json:"agence"`
	Region    *string `json:"region,omitempty"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        UserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusOK, LoginResponse{
		AccessToken: result.Token.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(result.TTL.Seconds()),
		User: UserResponse{
			Matricule: result.Agent.Matricule,
			Nom:       result.Agent.Nom,
			Role:      result.Agent.Role,
			Agence:    optional(result.Agent.Agence),
		},
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := authmw.GetClaims(ctx)
	if !ok {
		httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_MISSING", "Authentification requise.", nil)
		return
	}
	if err := h.service.Logout(ctx, claims); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, r, http.StatusOK, MessageResponse{Message: "Déconnexion réussie."})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := access.FromContext(r.Context())
	if !ok {
		httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_MISSING", "Authentification requise.", nil)
		return
	}
	httputil.WriteData(w, r, http.StatusOK, UserResponse{
		Matricule: identity.Matricule,
		Nom:       identity.Nom,
		Role:      string(identity.Role),
		Agence:    optional(identity.Agence),
		Region:    optional(identity.Region),
	})
}
