// Package cache provides the short-TTL read cache that fronts read-heavy
// aggregate views (the quest board). It is never consulted inside a write
// path; reads may lag writes by up to the configured TTL.
package cache

import (
	"context"
	"time"

	cachelocal "github.com/lowfell/questworld/server/cache/local"
	cacheredis "github.com/lowfell/questworld/server/cache/redis"
	"github.com/lowfell/questworld/server/config"
)

// Cache is the KV surface the engine uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// New returns a Cache backed by Redis if RedisAddr is set, otherwise an
// in-process local cache.
func New(cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.New(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return cachelocal.New(cachelocal.Config{GCInterval: cfg.LocalGCInterval})
}
