// Package service issues and revokes agent access tokens.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Directory,TokenIssuer,Revoker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cpcaisse/internal/auth/directory"
	"cpcaisse/internal/auth/models"
	jwttoken "cpcaisse/internal/jwt_token"
	"cpcaisse/internal/platform/metrics"
	"cpcaisse/internal/platform/tracing"
	dErrors "cpcaisse/pkg/domain-errors"
	authmw "cpcaisse/pkg/platform/middleware/auth"
	"cpcaisse/pkg/platform/middleware/metadata"
	"cpcaisse/pkg/requestcontext"
)

// DefaultTokenTTL matches a working day at the branch.
const DefaultTokenTTL = 8 * time.Hour

var tracer = tracing.Tracer("cpcaisse/auth")

type Directory interface {
	Authenticate(ctx context.Context, matricule, password string) (*models.Agent, error)
}

type TokenIssuer interface {
	GenerateAccessToken(subject jwttoken.Subject, expiresIn time.Duration) (*jwttoken.IssuedToken, error)
}

type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type Service struct {
	directory Directory
	tokens    TokenIssuer
	revoker   Revoker
	ttl       time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(dir Directory, tokens TokenIssuer, revoker Revoker, opts ...Option) *Service {
	s := &Service{
		directory: dir,
		tokens:    tokens,
		revoker:   revoker,
		ttl:       DefaultTokenTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is a freshly issued token and the agent it was issued to.
type LoginResult struct {
	Token *jwttoken.IssuedToken
	Agent models.Agent
	TTL   time.Duration
}

var errInvalidCredentials = dErrors.NewRule(dErrors.CodeUnauthorized, "INVALID_CREDENTIALS",
	"Matricule ou mot de passe incorrect. Contactez la DSI si le problème persiste.")

// Login checks credentials against the directory and signs a token. Unknown
// agents and wrong passwords get the same answer.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (_ *LoginResult, err error) {
	ctx, span := tracing.Start(ctx, tracer, "auth.login", "matricule", req.Matricule)
	defer func() { tracing.End(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	agent, err := s.directory.Authenticate(ctx, req.Matricule, req.Password)
	if err != nil {
		s.metrics.IncrementLogins("failure")
		s.logger.WarnContext(ctx, "login failed",
			"matricule", req.Matricule,
			"error", err,
			"ip", requestcontext.ClientIP(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
		if errors.Is(err, directory.ErrInvalidCredentials) {
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "Matricule ou mot de passe incorrect. Contactez la DSI si le problème persiste.")
	}

	issued, err := s.tokens.GenerateAccessToken(jwttoken.Subject{
		Matricule: agent.Matricule,
		Nom:       agent.Nom,
		Role:      agent.Role,
		Agence:    agent.Agence,
		Region:    agent.Region,
	}, s.ttl)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.metrics.IncrementLogins("success")
	s.logger.InfoContext(ctx, "login succeeded",
		"matricule", agent.Matricule,
		"role", agent.Role,
		"ip", requestcontext.ClientIP(ctx),
		"workstation", metadata.Workstation(requestcontext.UserAgent(ctx)),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &LoginResult{Token: issued, Agent: *agent, TTL: s.ttl}, nil
}

// Logout revokes the presented token until it would have expired. A token
// already past its expiry needs no entry.
func (s *Service) Logout(ctx context.Context, claims *authmw.Claims) error {
	if claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, claims.JTI, ttl); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke token",
			"matricule", claims.Matricule,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.logger.InfoContext(ctx, "logout",
		"matricule", claims.Matricule,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
