package main

import (
	"context"
	"database/sql"
	"time"

	goredis "github.com/redis/go-redis/v9"

	auditservice "cpcaisse/internal/audit/service"
	auditstore "cpcaisse/internal/audit/store"
	"cpcaisse/internal/auth/store/revocation"
	declservice "cpcaisse/internal/declaration/service"
	declstore "cpcaisse/internal/declaration/store"
	"cpcaisse/internal/referential/cache"
	refservice "cpcaisse/internal/referential/service"
	refstore "cpcaisse/internal/referential/store"
	"cpcaisse/internal/sideeffect/archive"
	statsservice "cpcaisse/internal/stats/service"
	statsstore "cpcaisse/internal/stats/store"
	txcontext "cpcaisse/pkg/platform/tx"
)

type declarationStore interface {
	declservice.Store
	archive.PathStore
}

type auditStore interface {
	auditservice.Appender
	auditservice.Reader
}

type revocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// stores is the persistence backend of one process: Postgres when a database
// is configured, the in-memory stores otherwise.
type stores struct {
	declarations declarationStore
	agencies     refservice.Store
	audit        auditStore
	stats        statsservice.Store
	revocations  revocationList
	cache        refservice.Cache
	tx           txcontext.Runner
	backend      string
}

func newStores(db *sql.DB, rdb *goredis.Client, txTimeout time.Duration) *stores {
	s := &stores{}
	if db != nil {
		s.declarations = declstore.NewPostgres(db)
		s.agencies = refstore.NewPostgres(db)
		s.audit = auditstore.NewPostgres(db)
		s.stats = statsstore.NewPostgres(db)
		s.revocations = revocation.NewPostgresTRL(db)
		s.tx = txcontext.NewSQLRunner(db, txTimeout)
		s.backend = "postgres"
	} else {
		declarations := declstore.NewInMemoryStore()
		agencies := refstore.NewSeededInMemoryStore()
		s.declarations = declarations
		s.agencies = agencies
		s.audit = auditstore.NewInMemoryStore()
		s.stats = statsstore.NewInMemoryStore(declarations, agencies)
		s.revocations = revocation.NewInMemoryTRL(nil)
		s.tx = txcontext.NewScopeRunner(txTimeout)
		s.backend = "memory"
	}

	s.cache = cache.NewMemory()
	if rdb != nil {
		s.revocations = revocation.NewRedisTRL(rdb)
		s.cache = cache.NewRedis(rdb)
	}
	return s
}
