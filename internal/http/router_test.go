package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"cpcaisse/internal/access"
	"cpcaisse/internal/auth/directory"
	authhandler "cpcaisse/internal/auth/handler"
	authservice "cpcaisse/internal/auth/service"
	"cpcaisse/internal/auth/store/revocation"
	jwttoken "cpcaisse/internal/jwt_token"
	"cpcaisse/internal/platform/health"
	"cpcaisse/pkg/platform/httputil"
	"cpcaisse/pkg/testutil"
)

type whoami struct{}

func (whoami) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		identity, _ := access.FromContext(r.Context())
		httputil.WriteData(w, r, http.StatusOK, map[string]string{"matricule": identity.Matricule})
	})
}

type RouterSuite struct {
	suite.Suite
	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir, err := directory.NewDevDirectory("")
	s.Require().NoError(err)
	tokens := jwttoken.NewHS256("router-test-key", "bq-cp-intranet")
	trl := revocation.NewInMemoryTRL(nil)
	auth := authhandler.New(authservice.New(dir, tokens, trl), logger)

	s.router = NewRouter(Deps{
		Logger:      logger,
		Validator:   jwttoken.NewJWTServiceAdapter(tokens),
		Revocations: trl,
		Health:      health.New(nil),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Public:   []PublicRegistrar{auth},
		Features: []Registrar{auth, whoami{}},
	})
}

func (s *RouterSuite) login() string {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/auth/login", map[string]string{"matricule": "SUP-056", "password": "x"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	return testutil.UnmarshalData[authhandler.LoginResponse](s.T(), rr).Data.AccessToken
}

func (s *RouterSuite) TestAuthenticatedRoute() {
	s.Run("token reaches the feature", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+s.login())
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal("SUP-056", testutil.UnmarshalData[map[string]string](s.T(), rr).Data["matricule"])
	})

	s.Run("missing token is refused", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/whoami", nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "TOKEN_MISSING")
	})
}

func (s *RouterSuite) TestUnknownRoute() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/nowhere", nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "NOT_FOUND")
	s.Equal("Route GET /api/v1/nowhere introuvable.", testutil.UnmarshalErrorResponse(s.T(), rr).Error.Message)
}

func (s *RouterSuite) TestMethodNotAllowed() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/health/live", nil)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}

func (s *RouterSuite) TestRequestIDEchoed() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "caisse-42")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("caisse-42", rr.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestNonJSONBodyRejected() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/v1/auth/login", "matricule=SUP-056")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnsupportedMediaType, "INVALID_CONTENT_TYPE")
}

func (s *RouterSuite) TestMetricsExposed() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/metrics", nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Contains(rr.Body.String(), "# metrics")
}
