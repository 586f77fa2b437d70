package jwttoken

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "cpcaisse/pkg/domain-errors"
	authmw "cpcaisse/pkg/platform/middleware/auth"
)

// Claims represents the JWT claims of an agent access token. The matricule
// travels as the standard subject.
type Claims struct {
	Nom    string `json:"nom,omitempty"`
	Role   string `json:"role,omitempty"`
	Agence string `json:"agence,omitempty"`
	Region string `json:"region,omitempty"`
	jwt.RegisteredClaims
}

// Subject is the agent a token is issued to.
type Subject struct {
	Matricule string
	Nom       string
	Role      string
	Agence    string
	Region    string
}

// IssuedToken is a signed token and the facts logout needs to revoke it.
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// JWTService handles JWT creation and validation. RS256 signs with a private
// key and verifies with the public one; HS256 uses a shared secret.
type JWTService struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	now       func() time.Time
}

func NewHS256(secret, issuer string) *JWTService {
	return &JWTService{
		method:    jwt.SigningMethodHS256,
		signKey:   []byte(secret),
		verifyKey: []byte(secret),
		issuer:    issuer,
		now:       time.Now,
	}
}

// NewRS256 builds a service from a key pair. A nil private key gives a
// verify-only service.
func NewRS256(private *rsa.PrivateKey, public *rsa.PublicKey, issuer string) *JWTService {
	return &JWTService{
		method:    jwt.SigningMethodRS256,
		signKey:   private,
		verifyKey: public,
		issuer:    issuer,
		now:       time.Now,
	}
}

// LoadRS256 reads PEM keys from disk. An empty private path gives a
// verify-only service.
func LoadRS256(publicPath, privatePath, issuer string) (*JWTService, error) {
	raw, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt public key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse jwt public key: %w", err)
	}
	var private *rsa.PrivateKey
	if privatePath != "" {
		raw, err := os.ReadFile(privatePath)
		if err != nil {
			return nil, fmt.Errorf("read jwt private key: %w", err)
		}
		if private, err = jwt.ParseRSAPrivateKeyFromPEM(raw); err != nil {
			return nil, fmt.Errorf("parse jwt private key: %w", err)
		}
	}
	return NewRS256(private, public, issuer), nil
}

// Algorithm names the signing method, for startup logs.
func (s *JWTService) Algorithm() string {
	return s.method.Alg()
}

func (s *JWTService) GenerateAccessToken(subject Subject, expiresIn time.Duration) (*IssuedToken, error) {
	if s.signKey == nil || s.signKey == (*rsa.PrivateKey)(nil) {
		return nil, dErrors.New(dErrors.CodeInternal, "token signing key not configured")
	}
	now := s.now()
	expiresAt := now.Add(expiresIn)
	jti := uuid.NewString()

	newToken := jwt.NewWithClaims(s.method, Claims{
		Nom:    subject.Nom,
		Role:   subject.Role,
		Agence: subject.Agence,
		Region: subject.Region,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.Matricule,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	signed, err := newToken.SignedString(s.signKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return &IssuedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// ValidateToken checks signature, algorithm, issuer and expiry. An expired
// token wraps authmw.ErrTokenExpired so the middleware can tell it apart.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &dErrors.Error{Code: dErrors.CodeUnauthorized, Message: "token has expired", Err: authmw.ErrTokenExpired}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
