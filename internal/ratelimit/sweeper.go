package ratelimit

import (
	"context"

	"github.com/opticore/opticore/internal/observability/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Sweeper removes window keys that lost their TTL. Every IsRateLimited call
// re-arms PExpire, so orphans only appear after partial pipeline failures;
// the sweep is advisory cleanup, not correctness.
type Sweeper struct {
	rdb      *redis.Client
	prefixes []string
}

// NewSweeper builds a sweeper over the tier key prefixes.
func NewSweeper(rdb *redis.Client, tiers *Tiers) *Sweeper {
	prefixes := []string{tiers.fallback.Config.KeyPrefix, tiers.modification.Config.KeyPrefix}
	for _, rule := range tiers.prefixes {
		prefixes = append(prefixes, rule.tier.Config.KeyPrefix)
	}
	return &Sweeper{rdb: rdb, prefixes: prefixes}
}

// Sweep scans each prefix and deletes keys without an expiry. Returns the
// number of keys removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	removed := 0
	for _, prefix := range s.prefixes {
		n, err := s.sweepPrefix(ctx, prefix)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	if removed > 0 {
		logger.FromContext(ctx).Info("swept orphaned rate limit keys", zap.Int("removed", removed))
	}
	return removed, nil
}

func (s *Sweeper) sweepPrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	iter := s.rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := s.rdb.TTL(ctx, key).Result()
		if err != nil {
			continue
		}
		// TTL of -1 means the key exists but carries no expiry.
		if ttl == -1 {
			if err := s.rdb.Del(ctx, key).Err(); err == nil {
				removed++
			}
		}
	}
	return removed, iter.Err()
}
