package access

import (
	"log/slog"
	"net/http"

	"cpcaisse/pkg/platform/httputil"
	"cpcaisse/pkg/requestcontext"
)

// RequireRoles rejects callers whose rank is below the minimum among roles.
// It must run after the auth middleware.
func RequireRoles(logger *slog.Logger, roles ...Role) func(http.Handler) http.Handler {
	required := make([]string, len(roles))
	for i, role := range roles {
		required[i] = string(role)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := FromContext(ctx)
			if !ok {
				httputil.WriteFailure(w, r, http.StatusUnauthorized, "NOT_AUTHENTICATED", "Authentification requise.", nil)
				return
			}
			if !HasAccess(id.Role, roles...) {
				logger.WarnContext(ctx, "access denied - insufficient role",
					"matricule", id.Matricule,
					"role", id.Role,
					"required", required,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteFailure(w, r, http.StatusForbidden, "ROLE_INSUFFICIENT",
					"Droits insuffisants pour cette action.", map[string]any{"required": required})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
