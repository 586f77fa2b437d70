package testutil

import (
	"net/http"

	authmw "cpcaisse/pkg/platform/middleware/auth"
)

// Agents mirrors the development directory so tests can authenticate as a
// realistic caller without issuing a token.
var (
	Admin       = authmw.Claims{Matricule: "ADMIN-001", Nom: "Admin DSI", Role: "ADMIN", JTI: "jti-admin"}
	CP          = authmw.Claims{Matricule: "CP-001", Nom: "Mme GHARBI", Role: "CP", Region: "Grand Tunis", JTI: "jti-cp"}
	Directeur   = authmw.Claims{Matricule: "DIR-056", Nom: "M. BEN AMOR", Role: "DIRECTEUR", Agence: "056", Region: "Grand Tunis", JTI: "jti-dir"}
	Superviseur = authmw.Claims{Matricule: "SUP-056", Nom: "M. CHAABANE", Role: "SUPERVISEUR", Agence: "056", Region: "Grand Tunis", JTI: "jti-sup"}
	Caissier    = authmw.Claims{Matricule: "CAI-001", Nom: "M. BEN SALAH", Role: "CAISSIER", Agence: "056", Region: "Grand Tunis", JTI: "jti-cai"}
)

// WithClaims attaches verified claims to the request context, as RequireAuth would.
func WithClaims(req *http.Request, c authmw.Claims) *http.Request {
	return req.WithContext(authmw.WithClaims(req.Context(), &c))
}
