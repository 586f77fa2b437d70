// Package access derives what an identity may do: the role ladder, the
// minimum role an action requires and the agency an identity is scoped to.
package access

import (
	"context"
	"strings"

	authmw "cpcaisse/pkg/platform/middleware/auth"
)

// Role is one rung of the bank's role ladder.
type Role string

const (
	RoleCaissier    Role = "CAISSIER"
	RoleSuperviseur Role = "SUPERVISEUR"
	RoleDirecteur   Role = "DIRECTEUR"
	RoleCP          Role = "CP"
	RoleAdmin       Role = "ADMIN"
)

// unknownRequirement is what an unrecognized role contributes to RequiredLevel:
// higher than any real rank so it never lowers the requirement.
const unknownRequirement = 99

var ranks = map[Role]int{
	RoleCaissier:    1,
	RoleSuperviseur: 2,
	RoleDirecteur:   3,
	RoleCP:          4,
	RoleAdmin:       5,
}

// Rank returns the position of role on the ladder, 0 when unknown.
func Rank(role Role) int {
	return ranks[role]
}

// IsKnown reports whether role is one of the five ladder roles.
func (r Role) IsKnown() bool {
	return ranks[r] > 0
}

// RequiredLevel is the minimum rank among roles.
func RequiredLevel(roles ...Role) int {
	level := unknownRequirement
	for _, role := range roles {
		rank := ranks[role]
		if rank == 0 {
			rank = unknownRequirement
		}
		if rank < level {
			level = rank
		}
	}
	return level
}

// HasAccess reports whether role reaches the minimum rank among roles.
// Unknown roles never pass.
func HasAccess(role Role, roles ...Role) bool {
	rank := Rank(role)
	return rank > 0 && rank >= RequiredLevel(roles...)
}

// Identity is the verified caller as seen by the domain.
type Identity struct {
	Matricule string
	Nom       string
	Role      Role
	Agence    string
	Region    string
}

// IdentityFromClaims maps verified token claims onto an Identity. The role is
// normalized to upper case; missing name and role fall back to the matricule
// and CAISSIER.
func IdentityFromClaims(c *authmw.Claims) Identity {
	role := Role(strings.ToUpper(strings.TrimSpace(c.Role)))
	if role == "" {
		role = RoleCaissier
	}
	nom := c.Nom
	if nom == "" {
		nom = c.Matricule
	}
	return Identity{
		Matricule: c.Matricule,
		Nom:       nom,
		Role:      role,
		Agence:    c.Agence,
		Region:    c.Region,
	}
}

// FromContext returns the identity placed in ctx by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	claims, ok := authmw.GetClaims(ctx)
	if !ok {
		return Identity{}, false
	}
	return IdentityFromClaims(claims), true
}

// AgencyScope returns the agency an identity is confined to, or nil when it
// may see every agency.
func AgencyScope(id Identity) *string {
	if id.Role == RoleCP || id.Role == RoleAdmin {
		return nil
	}
	agence := id.Agence
	return &agence
}

// EffectiveAgencyFilter applies the identity's scope before any caller filter:
// scoped identities always get their own agency.
func EffectiveAgencyFilter(id Identity, requested string) string {
	if scope := AgencyScope(id); scope != nil {
		return *scope
	}
	return requested
}

// InScope reports whether an agency falls within the identity's scope.
func InScope(id Identity, agence string) bool {
	scope := AgencyScope(id)
	return scope == nil || *scope == agence
}

// CanRead decides single-declaration reads. A CAISSIER reads only what it
// submitted, whatever the agency; other scoped roles read their agency.
func CanRead(id Identity, declarantMatricule, agence string) bool {
	if id.Role == RoleCaissier {
		return declarantMatricule == id.Matricule
	}
	return InScope(id, agence)
}
