//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cpcaisse/internal/auth/store/revocation"
	"cpcaisse/pkg/testutil/containers"
)

type RevocationSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	postgres *containers.PostgresContainer
}

func TestRevocationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RevocationSuite))
}

func (s *RevocationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.postgres = mgr.GetPostgres(s.T())
}

func (s *RevocationSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.redis.FlushAll(ctx))
	_, err := s.postgres.DB.ExecContext(ctx, "TRUNCATE TABLE jwt_blacklist")
	s.Require().NoError(err)
}

func (s *RevocationSuite) TestRedisKeyExpiresWithToken() {
	ctx := context.Background()
	trl := revocation.NewRedisTRL(s.redis.Client)

	s.Require().NoError(trl.RevokeToken(ctx, "jti-redis", time.Hour))
	revoked, err := trl.IsTokenRevoked(ctx, "jti-redis")
	s.Require().NoError(err)
	s.True(revoked)

	ttl, err := s.redis.Client.TTL(ctx, "trl:jti:jti-redis").Result()
	s.Require().NoError(err)
	s.InDelta(time.Hour.Seconds(), ttl.Seconds(), 5)

	revoked, err = trl.IsTokenRevoked(ctx, "unknown")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RevocationSuite) TestPostgresRevokeAndPurge() {
	ctx := context.Background()
	now := time.Now().UTC()
	trl := revocation.NewPostgresTRL(s.postgres.DB, revocation.WithPostgresClock(func() time.Time { return now }))

	s.Require().NoError(trl.RevokeToken(ctx, "jti-pg", time.Minute))
	s.Require().NoError(trl.RevokeToken(ctx, "jti-pg", time.Hour), "revoking twice extends the entry")
	revoked, err := trl.IsTokenRevoked(ctx, "jti-pg")
	s.Require().NoError(err)
	s.True(revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = trl.IsTokenRevoked(ctx, "jti-pg")
	s.Require().NoError(err)
	s.False(revoked)

	purged, err := trl.Purge(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), purged)
}
