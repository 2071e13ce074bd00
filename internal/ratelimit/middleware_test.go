package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/opticore/opticore/internal/clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, tiers *Tiers) (*gin.Engine, *Limiter, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	limiter := NewLimiter(rdb, clk)

	r := gin.New()
	r.Use(Middleware(limiter, tiers, nil))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, limiter, mr
}

func doRequest(r *gin.Engine, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":51234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func strictTiers() *Tiers {
	general := Tier{Name: TierGeneral, Config: Config{Limit: 5, Window: time.Minute, KeyPrefix: "ratelimit:general"}}
	t := NewTiers(general)
	t.Add("/api/auth", Tier{Name: TierAuth, Config: Config{Limit: 2, Window: time.Minute, KeyPrefix: "ratelimit:auth"}})
	return t
}

func TestMiddlewareAdmitsAndSetsHeaders(t *testing.T) {
	r, _, _ := newTestRouter(t, strictTiers())

	w := doRequest(r, http.MethodGet, "/api/orders", "10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "0", w.Header().Get("Retry-After"))
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	r, _, _ := newTestRouter(t, strictTiers())

	for i := 0; i < 5; i++ {
		w := doRequest(r, http.MethodGet, "/api/orders", "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := doRequest(r, http.MethodGet, "/api/orders", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retryAfter")
}

func TestMiddlewareBypassesHealth(t *testing.T) {
	r, _, _ := newTestRouter(t, strictTiers())

	for i := 0; i < 20; i++ {
		w := doRequest(r, http.MethodGet, "/health", "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMiddlewareResolvesTierByPrefix(t *testing.T) {
	r, _, _ := newTestRouter(t, strictTiers())

	w := doRequest(r, http.MethodPost, "/api/auth/login", "10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
}

func TestMiddlewareRejectsBlockedIPBeforeCounting(t *testing.T) {
	r, limiter, _ := newTestRouter(t, strictTiers())
	ctx := context.Background()

	require.NoError(t, limiter.BlockIP(ctx, "10.0.0.1", BlockOptions{
		Duration: 5 * time.Minute,
		Reason:   "manual block",
	}))

	w := doRequest(r, http.MethodGet, "/api/orders", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "manual block")

	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 300)

	// A blocked request never counts against the window.
	card, err := limiter.rdb.ZCard(ctx, "ratelimit:general:10.0.0.1:/api/orders").Result()
	require.NoError(t, err)
	assert.Zero(t, card)
}

func TestMiddlewareEscalatesRepeatedViolations(t *testing.T) {
	r, limiter, _ := newTestRouter(t, strictTiers())

	// Past twice the limit the IP is blocked outright.
	for i := 0; i < 11; i++ {
		doRequest(r, http.MethodGet, "/api/orders", "10.0.0.1")
	}

	assert.True(t, limiter.IsIPBlocked(context.Background(), "10.0.0.1"))

	info := limiter.GetBlockInfo(context.Background(), "10.0.0.1")
	require.NotNil(t, info)
	assert.Equal(t, "Repeated rate limit violations", info.Reason)
}

func TestMiddlewareFailsOpenWhenStoreDown(t *testing.T) {
	r, _, mr := newTestRouter(t, strictTiers())
	mr.Close()

	for i := 0; i < 10; i++ {
		w := doRequest(r, http.MethodGet, "/api/orders", "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestHeadersCarryRetryAfterOnEveryResult(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	cfg := Config{Limit: 5, Window: time.Minute, KeyPrefix: "ratelimit:general"}

	admitted := Headers(Result{Limited: false, Remaining: 4, ResetTime: now.Add(time.Minute), Current: 1}, cfg, now)
	assert.Equal(t, "0", admitted["Retry-After"])
	assert.Equal(t, "5", admitted["X-RateLimit-Limit"])
	assert.Equal(t, "4", admitted["X-RateLimit-Remaining"])

	rejected := Headers(Result{Limited: true, Remaining: 0, ResetTime: now.Add(30 * time.Second), Current: 6}, cfg, now)
	assert.Equal(t, "30", rejected["Retry-After"])
}

func TestResolveTierPicksLongestPrefix(t *testing.T) {
	general := Tier{Name: TierGeneral, Config: Config{Limit: 100, Window: time.Minute, KeyPrefix: "ratelimit:general"}}
	tiers := NewTiers(general)
	tiers.Add("/api", Tier{Name: "api", Config: Config{Limit: 50, Window: time.Minute, KeyPrefix: "ratelimit:api"}})
	tiers.Add("/api/payments", Tier{Name: TierPayment, Config: Config{Limit: 10, Window: time.Minute, KeyPrefix: "ratelimit:payment"}})

	assert.Equal(t, TierPayment, tiers.Resolve("/api/payments/charge", http.MethodPost).Name)
	assert.Equal(t, "api", tiers.Resolve("/api/orders", http.MethodGet).Name)
	assert.Equal(t, TierGeneral, tiers.Resolve("/other", http.MethodGet).Name)
	assert.Equal(t, TierModification, tiers.Resolve("/other", http.MethodDelete).Name)
}
