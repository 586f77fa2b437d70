package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cpcaisse/internal/audit/models"
	auditservice "cpcaisse/internal/audit/service"
	"cpcaisse/internal/audit/service/mocks"
	"cpcaisse/internal/audit/store"
	id "cpcaisse/pkg/domain"
	dErrors "cpcaisse/pkg/domain-errors"
	txcontext "cpcaisse/pkg/platform/tx"
	"cpcaisse/pkg/testutil"
)

// HandlerSuite drives the audit routes over a real in-memory store; only the
// declaration read check is mocked.
type HandlerSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	declarations *mocks.MockDeclarationReadChecker
	store        *store.InMemoryStore
	router       http.Handler
	declID       id.DeclarationID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.declarations = mocks.NewMockDeclarationReadChecker(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.declID = id.NewDeclarationID()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	scope := txcontext.NewScope()
	ctx := txcontext.WithScope(context.Background(), scope)
	rec := auditservice.NewRecorder(s.store)
	s.Require().NoError(rec.Record(ctx, models.Event{DeclarationID: &s.declID, DeclarationRef: "DC-20250310-AAAA0001",
		ActorMatricule: "CAI-001", ActorRole: "CAISSIER", Action: models.ActionCreation, NewStatus: "SOUMIS", Timestamp: base}))
	s.Require().NoError(rec.Record(ctx, models.Event{DeclarationID: &s.declID, DeclarationRef: "DC-20250310-AAAA0001",
		ActorMatricule: "SUP-056", ActorRole: "SUPERVISEUR", Action: models.ActionChangementStatut,
		PriorStatus: "SOUMIS", NewStatus: "EN_COURS", Timestamp: base.Add(time.Hour)}))
	scope.Commit()
	scope.Release()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(auditservice.New(s.store, s.declarations), logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestGlobalJournal_RoleGated() {
	req := testutil.WithClaims(httptest.NewRequest(http.MethodGet, "/audit", nil), testutil.Directeur)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "ROLE_INSUFFICIENT")
}

func (s *HandlerSuite) TestGlobalJournal_NewestFirstWithFilters() {
	req := testutil.WithClaims(httptest.NewRequest(http.MethodGet, "/audit?action=changement_statut", nil), testutil.CP)
	rr := testutil.DoRequest(s.router, req)

	s.Require().Equal(http.StatusOK, rr.Code)
	env := testutil.UnmarshalData[[]EventResponse](s.T(), rr)
	s.Require().Len(env.Data, 1)
	s.Equal("CHANGEMENT_STATUT", env.Data[0].Action)
	s.Equal("DC-20250310-AAAA0001", env.Data[0].DeclarationRef)
	s.Require().NotNil(env.Meta.Pagination)
	s.Equal(1, env.Meta.Pagination.Total)
	s.Equal(50, env.Meta.Pagination.Limit)
}

func (s *HandlerSuite) TestGlobalJournal_RejectsMalformedFilters() {
	req := testutil.WithClaims(httptest.NewRequest(http.MethodGet, "/audit?declaration_id=abc", nil), testutil.Admin)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "VALIDATION_ERROR")
}

func (s *HandlerSuite) TestDeclarationTrail() {
	s.Run("readable declaration returns its trail oldest first", func() {
		s.declarations.EXPECT().CheckReadable(gomock.Any(), gomock.Any(), s.declID).Return(nil)
		req := testutil.WithClaims(httptest.NewRequest(http.MethodGet, "/audit/declaration/"+s.declID.String(), nil), testutil.Caissier)

		rr := testutil.DoRequest(s.router, req)

		s.Require().Equal(http.StatusOK, rr.Code)
		env := testutil.UnmarshalData[[]EventResponse](s.T(), rr)
		s.Require().Len(env.Data, 2)
		s.Equal("CREATION", env.Data[0].Action)
		s.Nil(env.Data[0].AncienStatut)
		s.Equal("EN_COURS", *env.Data[1].NouveauStatut)
	})

	s.Run("unreadable declaration is denied", func() {
		s.declarations.EXPECT().CheckReadable(gomock.Any(), gomock.Any(), s.declID).
			Return(dErrors.NewRule(dErrors.CodeForbidden, "ACCESS_DENIED", "Accès non autorisé à cette déclaration."))
		req := testutil.WithClaims(httptest.NewRequest(http.MethodGet, "/audit/declaration/"+s.declID.String(), nil), testutil.Caissier)

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "ACCESS_DENIED")
	})

	s.Run("malformed id is not found", func() {
		req := testutil.WithClaims(httptest.NewRequest(http.MethodGet, "/audit/declaration/nope", nil), testutil.CP)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "NOT_FOUND")
	})
}
