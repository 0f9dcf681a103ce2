package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"natours/api/internal/config"
)

// Redis bundles the client with the tour stats cache and the password reset
// throttle built on it. A nil *Redis means redis is disabled; its caches are then
// nil too, which both treat as pass-through.
type Redis struct {
	client   *redis.Client
	stats    *StatsCache
	throttle *ResetThrottle
}

// NewRedis connects and pings redis. resetWindow is the forgotPassword throttle
// window; zero disables throttling while keeping the stats cache.
func NewRedis(ctx context.Context, cfg config.RedisConfig, resetWindow time.Duration) (*Redis, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{
		client:   client,
		stats:    NewStatsCache(client, cfg.CacheTTL),
		throttle: NewResetThrottle(client, resetWindow),
	}, nil
}

// StatsCache returns the stats cache, nil when redis is disabled.
func (r *Redis) StatsCache() *StatsCache {
	if r == nil {
		return nil
	}
	return r.stats
}

// ResetThrottle returns the reset throttle, nil when redis is disabled.
func (r *Redis) ResetThrottle() *ResetThrottle {
	if r == nil {
		return nil
	}
	return r.throttle
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}
