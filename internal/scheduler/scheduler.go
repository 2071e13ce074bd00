package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opticore/opticore/internal/clock"
	quotedomain "github.com/opticore/opticore/internal/quote/domain"
	"github.com/opticore/opticore/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	QuoteSvc quotedomain.Service
	Sweeper  *ratelimit.Sweeper `optional:"true"`
	Config   Config             `optional:"true"`
}

// Scheduler runs the periodic maintenance jobs: expiring overdue quotes
// and sweeping orphaned rate limit keys.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	quoteSvc quotedomain.Service
	sweeper  *ratelimit.Sweeper
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.QuoteSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		quoteSvc: p.QuoteSvc,
		sweeper:  p.Sweeper,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	start := s.clock.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err == nil {
		s.log.Debug("job finished", zap.String("job", name), zap.Duration("elapsed", elapsed))
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"expire_quotes", s.isJobEnabled("expire_quotes"), s.ExpireQuotesJob},
		{"sweep_rate_limits", s.isJobEnabled("sweep_rate_limits") && s.sweeper != nil, s.SweepRateLimitsJob},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty EnabledJobs enables everything (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) ExpireQuotesJob(ctx context.Context) error {
	expired, err := s.quoteSvc.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		s.log.Info("expired overdue quotes", zap.Int64("count", expired))
	}
	return nil
}

func (s *Scheduler) SweepRateLimitsJob(ctx context.Context) error {
	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Info("removed orphaned rate limit keys", zap.Int("count", removed))
	}
	return nil
}
