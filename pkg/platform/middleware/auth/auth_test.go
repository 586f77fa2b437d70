package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cpcaisse/pkg/platform/middleware/auth"
	"cpcaisse/pkg/platform/middleware/auth/mocks"
)

//go:generate mockgen -source=auth.go -destination=mocks/auth_mocks.go -package=mocks JWTValidator,TokenRevocationChecker

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error.Code
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid := &auth.Claims{Matricule: "SUP-056", Nom: "M. CHAABANE", Role: "SUPERVISEUR", Agence: "056", JTI: "jti-1"}

	tests := []struct {
		name       string
		header     string
		setup      func(v *mocks.MockJWTValidator, c *mocks.MockTokenRevocationChecker)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing header",
			header:     "",
			setup:      func(*mocks.MockJWTValidator, *mocks.MockTokenRevocationChecker) {},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_MISSING",
		},
		{
			name:   "expired token",
			header: "Bearer old",
			setup: func(v *mocks.MockJWTValidator, _ *mocks.MockTokenRevocationChecker) {
				v.EXPECT().ValidateToken("old").Return(nil, fmt.Errorf("verify: %w", auth.ErrTokenExpired))
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_EXPIRED",
		},
		{
			name:   "bad signature",
			header: "Bearer forged",
			setup: func(v *mocks.MockJWTValidator, _ *mocks.MockTokenRevocationChecker) {
				v.EXPECT().ValidateToken("forged").Return(nil, errors.New("signature is invalid"))
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_INVALID",
		},
		{
			name:   "revoked token",
			header: "Bearer good",
			setup: func(v *mocks.MockJWTValidator, c *mocks.MockTokenRevocationChecker) {
				v.EXPECT().ValidateToken("good").Return(valid, nil)
				c.EXPECT().IsTokenRevoked(gomock.Any(), "jti-1").Return(true, nil)
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_REVOKED",
		},
		{
			name:   "revocation store failure",
			header: "Bearer good",
			setup: func(v *mocks.MockJWTValidator, c *mocks.MockTokenRevocationChecker) {
				v.EXPECT().ValidateToken("good").Return(valid, nil)
				c.EXPECT().IsTokenRevoked(gomock.Any(), "jti-1").Return(false, errors.New("redis down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			validator := mocks.NewMockJWTValidator(ctrl)
			checker := mocks.NewMockTokenRevocationChecker(ctrl)
			tt.setup(validator, checker)

			h := auth.RequireAuth(validator, checker, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("next handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rr))
		})
	}
}

func TestRequireAuth_PlacesClaimsInContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	validator := mocks.NewMockJWTValidator(ctrl)
	checker := mocks.NewMockTokenRevocationChecker(ctrl)
	claims := &auth.Claims{Matricule: "CP-001", Role: "CP", JTI: "jti-2"}
	validator.EXPECT().ValidateToken("tok").Return(claims, nil)
	checker.EXPECT().IsTokenRevoked(gomock.Any(), "jti-2").Return(false, nil)

	var got *auth.Claims
	h := auth.RequireAuth(validator, checker, slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = auth.GetClaims(r.Context())
		}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "CP-001", got.Matricule)
}

func TestGetClaims_Absent(t *testing.T) {
	_, ok := auth.GetClaims(context.Background())
	assert.False(t, ok)
}
