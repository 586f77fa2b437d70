package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"cpcaisse/internal/auth/directory"
	"cpcaisse/internal/auth/service"
	"cpcaisse/internal/auth/store/revocation"
	jwttoken "cpcaisse/internal/jwt_token"
	authmw "cpcaisse/pkg/platform/middleware/auth"
	"cpcaisse/pkg/testutil"
)

// HandlerSuite wires the real directory, signer and revocation list behind
// the auth middleware, so a logout is observable on the next request.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	dir, err := directory.NewDevDirectory("")
	s.Require().NoError(err)
	tokens := jwttoken.NewHS256("handler-test-key", "bq-cp-intranet")
	trl := revocation.NewInMemoryTRL(nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(service.New(dir, tokens, trl), logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(tokens), trl, logger))
		h.Register(r)
	})
	s.router = r
}

func (s *HandlerSuite) login(matricule string) LoginResponse {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{"matricule": matricule, "password": "x"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	return testutil.UnmarshalData[LoginResponse](s.T(), rr).Data
}

func (s *HandlerSuite) authorized(method, path, token string) *http.Request {
	req := testutil.NewJSONRequest(s.T(), method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (s *HandlerSuite) TestLogin() {
	s.Run("seeded director", func() {
		resp := s.login("DIR-056")
		s.NotEmpty(resp.AccessToken)
		s.Equal("Bearer", resp.TokenType)
		s.Equal(8*3600, resp.ExpiresIn)
		s.Equal("DIRECTEUR", resp.User.Role)
		s.Require().NotNil(resp.User.Agence)
		s.Equal("056", *resp.User.Agence)
	})

	s.Run("administrator has a null agency", func() {
		resp := s.login("ADMIN-001")
		s.Nil(resp.User.Agence)
	})

	s.Run("missing credentials", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{"matricule": "CAI-001"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "MISSING_CREDENTIALS")
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/auth/login", "{")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestMe() {
	token := s.login("SUP-056").AccessToken

	rr := testutil.DoRequest(s.router, s.authorized(http.MethodGet, "/auth/me", token))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	me := testutil.UnmarshalData[UserResponse](s.T(), rr).Data
	s.Equal("SUP-056", me.Matricule)
	s.Equal("M. CHAABANE", me.Nom)
	s.Equal("SUPERVISEUR", me.Role)
	s.Require().NotNil(me.Region)
	s.Equal("Grand Tunis", *me.Region)
}

func (s *HandlerSuite) TestLogoutRevokesToken() {
	token := s.login("CAI-001").AccessToken

	rr := testutil.DoRequest(s.router, s.authorized(http.MethodPost, "/auth/logout", token))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("Déconnexion réussie.", testutil.UnmarshalData[MessageResponse](s.T(), rr).Data.Message)

	rr = testutil.DoRequest(s.router, s.authorized(http.MethodGet, "/auth/me", token))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "TOKEN_REVOKED")

	other := s.login("CAI-001").AccessToken
	rr = testutil.DoRequest(s.router, s.authorized(http.MethodGet, "/auth/me", other))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *HandlerSuite) TestProtectedRoutesNeedToken() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/auth/me", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "TOKEN_MISSING")
}
