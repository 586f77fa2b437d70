// Package httpapi assembles the public HTTP surface: the middleware chain,
// probes, metrics and the authenticated /api/v1 routes.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cpcaisse/internal/platform/health"
	"cpcaisse/pkg/platform/httputil"
	authmw "cpcaisse/pkg/platform/middleware/auth"
	"cpcaisse/pkg/platform/middleware/metadata"
	"cpcaisse/pkg/platform/middleware/request"
	"cpcaisse/pkg/platform/middleware/requesttime"
)

// Registrar mounts a feature's routes on the authenticated /api/v1 group.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts routes that are reachable without a token.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// Deps are the collaborators of the router. Public and Features may be empty.
type Deps struct {
	Logger         *slog.Logger
	Validator      authmw.JWTValidator
	Revocations    authmw.TokenRevocationChecker
	Health         *health.Handler
	RequestMetrics *request.Metrics
	Metrics        http.Handler
	BodyLimit      int64
	Public         []PublicRegistrar
	Features       []Registrar
}

// NewRouter wires the middleware chain and every route.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	r.Use(request.LatencyMiddleware(d.RequestMetrics))
	r.Use(request.BodyLimit(d.BodyLimit))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	if d.Health != nil {
		d.Health.Register(r)
	}
	metricsHandler := d.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(request.ContentTypeJSON)

		for _, p := range d.Public {
			p.RegisterPublic(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(d.Validator, d.Revocations, d.Logger))
			for _, f := range d.Features {
				f.Register(r)
			}
		})
	})

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteFailure(w, r, http.StatusNotFound, "NOT_FOUND",
		"Route "+r.Method+" "+r.URL.Path+" introuvable.", nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteFailure(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		"Méthode "+r.Method+" non autorisée sur "+r.URL.Path+".", nil)
}
