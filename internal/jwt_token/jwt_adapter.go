package jwttoken

import (
	authmw "cpcaisse/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims maps token claims onto the request claims. Missing
// nom and role fall back to the matricule and CAISSIER.
func ToMiddlewareClaims(claims *Claims) *authmw.Claims {
	nom := claims.Nom
	if nom == "" {
		nom = claims.Subject
	}
	role := claims.Role
	if role == "" {
		role = "CAISSIER"
	}
	var expiresAt int64
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Unix()
	}
	return &authmw.Claims{
		Matricule: claims.Subject,
		Nom:       nom,
		Role:      role,
		Agence:    claims.Agence,
		Region:    claims.Region,
		JTI:       claims.ID, // JWT ID for revocation tracking
		ExpiresAt: expiresAt,
	}
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
