package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opticore/opticore/internal/clock"
	"github.com/opticore/opticore/internal/observability/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	blockKeyPrefix = "ratelimit:blocked:"

	// defaultStoreTimeout bounds every redis round trip so a slow store
	// degrades to fail-open instead of stalling the request path.
	defaultStoreTimeout = 250 * time.Millisecond
)

// BlockOptions describes a manual or escalated IP block.
type BlockOptions struct {
	Duration time.Duration
	Reason   string
}

// BlockInfo reports the state of a block key.
type BlockInfo struct {
	Blocked   bool
	Reason    string
	ExpiresAt time.Time
}

// Limiter implements a sliding window counter on redis sorted sets.
// Store failures never reject a request: every read path fails open.
type Limiter struct {
	rdb          *redis.Client
	clock        clock.Clock
	storeTimeout time.Duration
}

// LimiterOption customizes a Limiter.
type LimiterOption func(*Limiter)

// WithStoreTimeout overrides the per-call redis timeout.
func WithStoreTimeout(d time.Duration) LimiterOption {
	return func(l *Limiter) {
		if d > 0 {
			l.storeTimeout = d
		}
	}
}

// NewLimiter builds a Limiter over the given redis client.
func NewLimiter(rdb *redis.Client, clk clock.Clock, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		rdb:          rdb,
		clock:        clk,
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsRateLimited records one request against the key's window and reports
// whether the caller is over the limit. The window is purged, the request
// added and the set counted in a single pipeline round trip, so concurrent
// callers observe each other through redis command ordering alone.
func (l *Limiter) IsRateLimited(ctx context.Context, key string, cfg Config) Result {
	now := l.clock.Now()
	windowStart := now.Add(-cfg.Window)

	admitted := Result{
		Limited:   false,
		Remaining: cfg.Limit,
		ResetTime: now.Add(cfg.Window),
	}

	redisKey := cfg.KeyPrefix + ":" + key
	member := fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe.PExpire(ctx, redisKey, cfg.Window)
	card := pipe.ZCard(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.FromContext(ctx).Warn("rate limit store unavailable, failing open",
			zap.String("key", key),
			zap.Error(err),
		)
		return admitted
	}

	current := card.Val()
	remaining := cfg.Limit - int(current)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Limited:   current > int64(cfg.Limit),
		Remaining: remaining,
		ResetTime: now.Add(cfg.Window),
		Current:   current,
	}
}

// BlockIP writes a block key for the IP. A later call overwrites both the
// reason and the TTL (last writer wins).
func (l *Limiter) BlockIP(ctx context.Context, ip string, opts BlockOptions) error {
	if strings.TrimSpace(ip) == "" {
		return fmt.Errorf("blank ip")
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("block duration must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	if err := l.rdb.Set(ctx, blockKeyPrefix+ip, opts.Reason, opts.Duration).Err(); err != nil {
		return fmt.Errorf("block ip %s: %w", ip, err)
	}
	return nil
}

// IsIPBlocked reports whether the IP carries an active block. Store errors
// fail open.
func (l *Limiter) IsIPBlocked(ctx context.Context, ip string) bool {
	info := l.GetBlockInfo(ctx, ip)
	return info != nil && info.Blocked
}

// GetBlockInfo reads the block key and its remaining TTL. Returns a
// non-blocked info on miss, nil only on store error.
func (l *Limiter) GetBlockInfo(ctx context.Context, ip string) *BlockInfo {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	key := blockKeyPrefix + ip
	reason, err := l.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return &BlockInfo{Blocked: false}
	}
	if err != nil {
		logger.FromContext(ctx).Warn("block lookup failed, failing open",
			zap.String("ip", ip),
			zap.Error(err),
		)
		return nil
	}

	ttl, err := l.rdb.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return &BlockInfo{Blocked: true, Reason: reason, ExpiresAt: l.clock.Now()}
	}

	return &BlockInfo{
		Blocked:   true,
		Reason:    reason,
		ExpiresAt: l.clock.Now().Add(ttl),
	}
}

// UnblockIP removes the block key. Deleting a missing key is not an error.
func (l *Limiter) UnblockIP(ctx context.Context, ip string) error {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	if err := l.rdb.Del(ctx, blockKeyPrefix+ip).Err(); err != nil {
		return fmt.Errorf("unblock ip %s: %w", ip, err)
	}
	return nil
}
