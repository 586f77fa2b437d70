//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cpcaisse/internal/referential/cache"
	"cpcaisse/internal/referential/models"
	"cpcaisse/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cache.NewRedis(s.redis.Client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTripAndInvalidate() {
	ctx := context.Background()
	agencies := []models.Agency{{Code: "056", Nom: "Agence Lac II", Region: "Grand Tunis", Actif: true}}

	s.Require().NoError(s.cache.Set(ctx, cache.KeyActiveAgencies, agencies, time.Hour))
	got, ok, err := s.cache.Get(ctx, cache.KeyActiveAgencies)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(agencies, got)

	ttl, err := s.redis.Client.TTL(ctx, cache.KeyActiveAgencies).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute)

	s.Require().NoError(s.cache.Invalidate(ctx, cache.KeyActiveAgencies))
	_, ok, err = s.cache.Get(ctx, cache.KeyActiveAgencies)
	s.Require().NoError(err)
	s.False(ok)
}
