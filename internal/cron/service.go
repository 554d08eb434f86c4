package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

var (
	errLoggerRequired = errors.New("cron: logger required")
	errLockRequired   = errors.New("cron: lock required")
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	// Interval between cycles; defaults to five minutes.
	Interval time.Duration
}

// Service runs every registered job once per interval. A cycle only proceeds on the instance that
// wins the distributed lock.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errLoggerRequired
	case p.Lock == nil:
		return nil, errLockRequired
	}
	s := &Service{logg: p.Logger, jobs: p.Registry, lock: p.Lock, metrics: p.Metrics, interval: p.Interval}
	if s.jobs == nil {
		s.jobs = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick, returning once ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs one locked cycle. A failing job does not stop the rest; all job errors are
// returned together.
func (s *Service) RunOnce(ctx context.Context) (errs error) {
	won, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !won {
		s.metrics.IncSkipped()
		s.logg.Info(s.holderContext(ctx), "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	started := time.Now()
	for _, job := range s.jobs.Jobs() {
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        s.jobs.Names(),
		"failed":      len(multierr.Errors(errs)),
		"duration_ms": time.Since(started).Milliseconds(),
	}), "cron cycle finished")
	return errs
}

func (s *Service) holderContext(ctx context.Context) context.Context {
	h, ok := s.lock.(lockHolder)
	if !ok {
		return ctx
	}
	holder, err := h.Holder(ctx)
	if err != nil || holder == "" {
		return ctx
	}
	return s.logg.WithField(ctx, "lock_holder", holder)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(started)
	s.metrics.ObserveRun(job.Name(), elapsed, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return err
	}
	s.logg.Debug(jobCtx, "cron job done")
	return nil
}
