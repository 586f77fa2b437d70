package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	audithandler "cpcaisse/internal/audit/handler"
	auditservice "cpcaisse/internal/audit/service"
	"cpcaisse/internal/auth/directory"
	authhandler "cpcaisse/internal/auth/handler"
	authservice "cpcaisse/internal/auth/service"
	declhandler "cpcaisse/internal/declaration/handler"
	declservice "cpcaisse/internal/declaration/service"
	httpapi "cpcaisse/internal/http"
	jwttoken "cpcaisse/internal/jwt_token"
	"cpcaisse/internal/platform/config"
	"cpcaisse/internal/platform/database"
	"cpcaisse/internal/platform/health"
	"cpcaisse/internal/platform/httpserver"
	"cpcaisse/internal/platform/kafka"
	"cpcaisse/internal/platform/kafka/consumer"
	"cpcaisse/internal/platform/kafka/producer"
	"cpcaisse/internal/platform/metrics"
	platformredis "cpcaisse/internal/platform/redis"
	"cpcaisse/internal/platform/tracing"
	refhandler "cpcaisse/internal/referential/handler"
	refservice "cpcaisse/internal/referential/service"
	"cpcaisse/internal/sideeffect"
	"cpcaisse/internal/sideeffect/archive"
	"cpcaisse/internal/sideeffect/notify"
	statshandler "cpcaisse/internal/stats/handler"
	statsservice "cpcaisse/internal/stats/service"
	"cpcaisse/pkg/platform/circuit"
	"cpcaisse/pkg/platform/middleware/request"
)

const revocationPurgeInterval = time.Hour

// serve runs until ctx ends, then drains the server, the consumer and the
// side-effect queue within the shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	pool, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	var db *sql.DB
	if pool != nil {
		defer pool.Close()
		db = pool.DB()
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var redisClient *goredis.Client
	if rdb != nil {
		defer rdb.Close()
		redisClient = rdb.Client
	}

	st := newStores(db, redisClient, cfg.Database.TxTimeout)
	m := metrics.New()

	var dbCheck health.CheckFunc
	if pool != nil {
		dbCheck = pool.Health
	}
	probes := health.New(dbCheck)
	if rdb != nil {
		probes.RegisterCheck("redis", rdb.Health)
	}

	effects, err := newSideEffects(ctx, cfg, st, log)
	if err != nil {
		return err
	}
	if effects.admin != nil {
		probes.RegisterCheck("kafka", effects.admin.Health)
	}

	recorder := auditservice.NewRecorder(st.audit)
	references := refservice.New(st.agencies, st.cache, recorder, st.tx,
		refservice.WithLogger(log),
		refservice.WithMetrics(m),
		refservice.WithCacheTTL(cfg.Reference.CacheTTL),
	)
	declarations := declservice.New(st.declarations, references, recorder, effects.dispatcher, st.tx,
		declservice.WithLogger(log),
		declservice.WithMetrics(m),
	)

	tokens, err := newTokenService(cfg.Auth)
	if err != nil {
		return err
	}
	agents, err := directory.NewDevDirectory(cfg.Auth.DevPassword)
	if err != nil {
		return err
	}
	auth := authhandler.New(authservice.New(agents, tokens, st.revocations,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithTokenTTL(cfg.Auth.TokenTTL),
	), log)

	handler := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Validator:      jwttoken.NewJWTServiceAdapter(tokens),
		Revocations:    st.revocations,
		Health:         probes,
		RequestMetrics: request.NewMetrics(),
		BodyLimit:      cfg.Server.BodyLimit,
		Public:         []httpapi.PublicRegistrar{auth},
		Features: []httpapi.Registrar{
			auth,
			declhandler.New(declarations, log),
			audithandler.New(auditservice.New(st.audit, declarations), log),
			refhandler.New(references, log),
			statshandler.New(statsservice.New(st.stats, log), log),
		},
	})
	srv := httpserver.New(cfg.Server.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	effects.start(gctx)

	g.Go(func() error {
		log.InfoContext(gctx, "cp-caisse listening",
			"addr", cfg.Server.Addr,
			"environment", cfg.Environment,
			"store", st.backend,
			"jwt_alg", tokens.Algorithm(),
			"kafka", effects.admin != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if p, ok := st.revocations.(interface {
		Purge(ctx context.Context) (int64, error)
	}); ok {
		g.Go(func() error {
			purgeRevocations(gctx, p.Purge, log)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		errs := []error{srv.Shutdown(shutdownCtx)}
		errs = append(errs, effects.stop(shutdownCtx)...)
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newTokenService(cfg config.AuthConfig) (*jwttoken.JWTService, error) {
	if cfg.PublicKeyPath != "" {
		return jwttoken.LoadRS256(cfg.PublicKeyPath, cfg.PrivateKeyPath, cfg.Issuer)
	}
	return jwttoken.NewHS256(cfg.Secret, cfg.Issuer), nil
}

func purgeRevocations(ctx context.Context, purge func(context.Context) (int64, error), log *slog.Logger) {
	ticker := time.NewTicker(revocationPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				log.WarnContext(ctx, "revocation purge failed", "error", err)
				continue
			}
			log.DebugContext(ctx, "revocation purge", "removed", n)
		}
	}
}

// sideEffects is the post-commit pipeline: the dispatcher, and when brokers
// are configured the Kafka producer, admin client and consumer group.
type sideEffects struct {
	dispatcher *sideeffect.Dispatcher
	producer   *producer.Producer
	consumer   *consumer.Consumer
	admin      *kafka.Admin
}

func newSideEffects(ctx context.Context, cfg *config.Config, st *stores, log *slog.Logger) (*sideEffects, error) {
	var mailer notify.Mailer = notify.NewLogMailer(log)
	if cfg.Mail.Host != "" {
		smtpMailer, err := notify.NewSMTPMailer(cfg.Mail)
		if err != nil {
			return nil, err
		}
		mailer = smtpMailer
	}

	local := sideeffect.NewRouter(log)
	notify.New(mailer, notify.Lists{
		AlerteN4:       cfg.Mail.AlerteN4,
		AlerteRecidive: cfg.Mail.AlerteRecidive,
		BaseURL:        cfg.Server.BaseURL,
	}, log).Register(local)
	archive.New(cfg.Archive.PDFPath, st.declarations, log).Register(local)

	effects := &sideEffects{}
	var sink sideeffect.Sink = local
	if cfg.Kafka.Brokers != "" {
		admin, err := kafka.NewAdmin(cfg.Kafka.Brokers)
		if err != nil {
			return nil, err
		}
		if err := admin.EnsureTopics(ctx, sideeffect.Topics()...); err != nil {
			log.WarnContext(ctx, "kafka topic bootstrap failed", "error", err)
		}
		p, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Retries:         3,
			DeliveryTimeout: cfg.SideEffects.Timeout,
		}, log)
		if err != nil {
			admin.Close()
			return nil, err
		}
		c, err := consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topics:  sideeffect.Topics(),
		}, sideeffect.NewConsumerHandler(local, log), log)
		if err != nil {
			_ = p.Close()
			admin.Close()
			return nil, err
		}
		effects.admin, effects.producer, effects.consumer = admin, p, c
		sink = sideeffect.NewKafkaSink(p, local, circuit.New("side-effects-kafka"), log)
	}

	effects.dispatcher = sideeffect.NewDispatcher(sink,
		sideeffect.WithWorkers(cfg.SideEffects.Workers),
		sideeffect.WithQueueSize(cfg.SideEffects.QueueSize),
		sideeffect.WithTimeout(cfg.SideEffects.Timeout),
		sideeffect.WithLogger(log),
	)
	return effects, nil
}

func (e *sideEffects) start(ctx context.Context) {
	e.dispatcher.Start(ctx)
	if e.consumer != nil {
		e.consumer.Start(ctx)
	}
}

// stop drains the queue before closing the producer it publishes through.
func (e *sideEffects) stop(ctx context.Context) []error {
	errs := []error{e.dispatcher.Stop(ctx)}
	if e.consumer != nil {
		errs = append(errs, e.consumer.Stop(ctx))
	}
	if e.producer != nil {
		errs = append(errs, e.producer.Close())
	}
	if e.admin != nil {
		e.admin.Close()
	}
	return errs
}
