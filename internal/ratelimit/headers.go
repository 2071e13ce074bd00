package ratelimit

import (
	"strconv"
	"time"
)

// Headers renders the standard rate-limit response headers for a result.
func Headers(result Result, cfg Config, now time.Time) map[string]string {
	retryAfter := "0"
	if result.Limited {
		retryAfter = strconv.Itoa(retryAfterSeconds(result.ResetTime, now))
	}
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(cfg.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(result.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(result.ResetTime.Unix(), 10),
		"Retry-After":           retryAfter,
	}
}

// retryAfterSeconds rounds the wait up to whole seconds, never below zero.
func retryAfterSeconds(until, now time.Time) int {
	wait := until.Sub(now)
	if wait <= 0 {
		return 0
	}
	secs := int((wait + time.Second - 1) / time.Second)
	return secs
}
