package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Cache,AuditRecorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cpcaisse/internal/access"
	auditmodels "cpcaisse/internal/audit/models"
	"cpcaisse/internal/platform/metrics"
	"cpcaisse/internal/referential/cache"
	"cpcaisse/internal/referential/models"
	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/platform/sentinel"
	txcontext "cpcaisse/pkg/platform/tx"
	"cpcaisse/pkg/requestcontext"
)

// DefaultCacheTTL is how long the active agency list is served from cache.
const DefaultCacheTTL = 24 * time.Hour

type Store interface {
	ListActive(ctx context.Context) ([]models.Agency, error)
	Upsert(ctx context.Context, agency models.Agency) error
}

type Cache interface {
	Get(ctx context.Context, key string) ([]models.Agency, bool, error)
	Set(ctx context.Context, key string, agencies []models.Agency, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, event auditmodels.Event) error
}

// Service serves reference data. Cache failures degrade to the store; they
// are logged and never returned.
type Service struct {
	store   Store
	cache   Cache
	audit   AuditRecorder
	tx      txcontext.Runner
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(store Store, c Cache, audit AuditRecorder, tx txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cache:  c,
		audit:  audit,
		tx:     tx,
		ttl:    DefaultCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActive returns the active agencies, from cache when fresh.
func (s *Service) ListActive(ctx context.Context) ([]models.Agency, error) {
	cached, ok, err := s.cache.Get(ctx, cache.KeyActiveAgencies)
	if err != nil {
		s.logger.WarnContext(ctx, "agency cache read failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if ok {
		s.metrics.ObserveReferenceCache(true)
		return cached, nil
	}
	s.metrics.ObserveReferenceCache(false)

	agencies, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agencies")
	}
	if err := s.cache.Set(ctx, cache.KeyActiveAgencies, agencies, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "agency cache write failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return agencies, nil
}

// ActiveAgency returns the active agency with code, or AGENCE_INCONNUE.
func (s *Service) ActiveAgency(ctx context.Context, code string) (*models.Agency, error) {
	agencies, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range agencies {
		if agencies[i].Code == code {
			a := agencies[i]
			return &a, nil
		}
	}
	return nil, dErrors.NewRule(dErrors.CodeBusinessRule, "AGENCE_INCONNUE", "Agence "+code+" inconnue ou inactive.")
}

// Upsert creates or replaces an agency and records it in the audit trail,
// then drops the cached list.
func (s *Service) Upsert(ctx context.Context, actor access.Identity, req *models.UpsertRequest) (*models.Agency, error) {
	agency := req.Agency()

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Upsert(ctx, agency); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.NewRule(dErrors.CodeBusinessRule, "REGION_INCONNUE", "Région inconnue.")
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to upsert agency")
		}
		return s.audit.Record(ctx, auditmodels.Event{
			ActorMatricule: actor.Matricule,
			ActorRole:      string(actor.Role),
			Action:         auditmodels.ActionReferentielMaj,
			Details: map[string]any{
				"code":      agency.Code,
				"nom":       agency.Nom,
				"region_id": agency.RegionID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, cache.KeyActiveAgencies); err != nil {
		s.logger.ErrorContext(ctx, "agency cache invalidation failed",
			"error", err,
			"code", agency.Code,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.logger.InfoContext(ctx, "agency upserted",
		"code", agency.Code,
		"matricule", actor.Matricule,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &agency, nil
}
