package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/opticore/opticore/internal/clock"
	quotedomain "github.com/opticore/opticore/internal/quote/domain"
	"github.com/opticore/opticore/internal/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubQuoteService struct {
	quotedomain.Service

	expireCalls int
	expired     int64
	err         error
}

func (s *stubQuoteService) ExpireOverdue(ctx context.Context) (int64, error) {
	s.expireCalls++
	return s.expired, s.err
}

func newTestScheduler(t *testing.T, quoteSvc quotedomain.Service, sweeper *ratelimit.Sweeper, cfg Config) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		QuoteSvc: quoteSvc,
		Sweeper:  sweeper,
		Config:   cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnceExpiresQuotes(t *testing.T) {
	quoteSvc := &stubQuoteService{expired: 3}
	sched := newTestScheduler(t, quoteSvc, nil, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, quoteSvc.expireCalls)
}

func TestRunOnceSweepsOrphanedKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// A window key without a TTL is an orphan; a keyed one is live.
	require.NoError(t, rdb.ZAdd(context.Background(), "ratelimit:general:1.2.3.4:/api/x", redis.Z{Score: 1, Member: "a"}).Err())
	require.NoError(t, rdb.Set(context.Background(), "ratelimit:auth:live", "1", time.Minute).Err())

	sweeper := ratelimit.NewSweeper(rdb, ratelimit.DefaultTiers())
	sched := newTestScheduler(t, &stubQuoteService{}, sweeper, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))

	assert.False(t, mr.Exists("ratelimit:general:1.2.3.4:/api/x"))
	assert.True(t, mr.Exists("ratelimit:auth:live"))
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	boom := errors.New("db down")
	quoteSvc := &stubQuoteService{err: boom}
	sched := newTestScheduler(t, quoteSvc, nil, Config{})

	err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestEnabledJobsFilter(t *testing.T) {
	quoteSvc := &stubQuoteService{}
	sched := newTestScheduler(t, quoteSvc, nil, Config{EnabledJobs: []string{"sweep_rate_limits"}})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 0, quoteSvc.expireCalls)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
