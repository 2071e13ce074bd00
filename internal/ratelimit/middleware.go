package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opticore/opticore/internal/observability/logger"
	"github.com/opticore/opticore/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	escalationBlockDuration = 5 * time.Minute
	escalationReason        = "Repeated rate limit violations"
)

var bypassPrefixes = []string{
	"/health",
	"/metrics",
	"/favicon.ico",
	"/static/",
}

// Middleware enforces the per-tier sliding window on inbound requests.
// Blocked IPs are rejected before any window accounting; sustained abuse
// past twice the tier limit escalates into a temporary IP block.
func Middleware(limiter *Limiter, tiers *Tiers, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if isBypassed(path) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ip := c.ClientIP()

		if info := limiter.GetBlockInfo(ctx, ip); info != nil && info.Blocked {
			retry := retryAfterSeconds(info.ExpiresAt, limiter.clock.Now())
			c.Header("Retry-After", formatSeconds(retry))
			m.RecordRateLimitDenied(ctx, "blocked", path, "ip_blocked")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests",
				"reason":     info.Reason,
				"retryAfter": retry,
			})
			return
		}

		tier := tiers.Resolve(path, c.Request.Method)
		key := ip + ":" + path
		result := limiter.IsRateLimited(ctx, key, tier.Config)

		for name, value := range Headers(result, tier.Config, limiter.clock.Now()) {
			c.Header(name, value)
		}

		if !result.Limited {
			m.RecordRateLimitAllowed(ctx, tier.Name, path)
			c.Next()
			return
		}

		m.RecordRateLimitDenied(ctx, tier.Name, path, "window_exceeded")

		if result.Current > 2*int64(tier.Config.Limit) {
			if err := limiter.BlockIP(ctx, ip, BlockOptions{
				Duration: escalationBlockDuration,
				Reason:   escalationReason,
			}); err != nil {
				logger.FromContext(ctx).Warn("escalation block failed",
					zap.String("ip", ip),
					zap.Error(err),
				)
			} else {
				m.RecordIPBlock(ctx, "escalation")
				logger.FromContext(ctx).Warn("ip blocked after repeated violations",
					zap.String("ip", ip),
					zap.String("tier", tier.Name),
					zap.Int64("current", result.Current),
				)
			}
		}

		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":      "Too many requests",
			"retryAfter": retryAfterSeconds(result.ResetTime, limiter.clock.Now()),
		})
	}
}

func isBypassed(path string) bool {
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func formatSeconds(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return strconv.Itoa(secs)
}
