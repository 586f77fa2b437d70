package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cpcaisse/pkg/platform/httputil"
	"cpcaisse/pkg/requestcontext"
)

// ErrTokenExpired is wrapped by validators when a token is well formed but past exp.
var ErrTokenExpired = errors.New("token expired")

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims is the verified identity carried by an access token.
type Claims struct {
	Matricule string
	Nom       string
	Role      string
	Agence    string
	Region    string
	JTI       string
	ExpiresAt int64
}

type contextKeyClaims struct{}

var ContextKeyClaims = contextKeyClaims{}

// GetClaims retrieves the verified claims from the context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ContextKeyClaims).(*Claims)
	return c, ok && c != nil
}

// WithClaims injects claims into a context. Used by tests and by RequireAuth.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, c)
}

// RequireAuth verifies the bearer token, rejects revoked token ids and places
// the claims in the request context.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_MISSING", "Token d'authentification manquant.", nil)
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				if errors.Is(err, ErrTokenExpired) {
					httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "Session expirée. Veuillez vous reconnecter.", nil)
					return
				}
				httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "Token invalide.", nil)
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti",
						"request_id", requestID,
					)
					httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "Token invalide.", nil)
					return
				}

				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteFailure(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Impossible de valider le token.", nil)
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					httputil.WriteFailure(w, r, http.StatusUnauthorized, "TOKEN_REVOKED", "Token révoqué. Veuillez vous reconnecter.", nil)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}
