package ratelimit

import (
	"context"
	"time"

	"github.com/opticore/opticore/internal/clock"
	"github.com/opticore/opticore/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the redis client, tier policies and limiter.
var Module = fx.Module("ratelimit",
	fx.Provide(
		NewRedisClient,
		DefaultTiers,
		ProvideLimiter,
		NewSweeper,
	),
)

// NewRedisClient opens the rate limit redis connection and verifies it on
// startup. A failed ping is logged, not fatal: the limiter fails open.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				log.Warn("redis unreachable, rate limiting will fail open",
					zap.String("addr", cfg.RateLimit.RedisAddr),
					zap.Error(err),
				)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})

	return rdb
}

// ProvideLimiter builds the limiter with the configured store timeout.
func ProvideLimiter(rdb *redis.Client, clk clock.Clock, cfg config.Config) *Limiter {
	opts := []LimiterOption{}
	if cfg.RateLimit.StoreTimeoutMs > 0 {
		opts = append(opts, WithStoreTimeout(time.Duration(cfg.RateLimit.StoreTimeoutMs)*time.Millisecond))
	}
	return NewLimiter(rdb, clk, opts...)
}
