package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// JobTimeout caps a single job run; zero means no cap.
	JobTimeout time.Duration
}

// Service runs every registered job once per interval. Each job runs under
// its own distributed lock so several workers can share one schedule.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	timeout  time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	s := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		timeout:  params.JobTimeout,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run performs a cycle immediately and then once per interval until ctx is
// done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs each job in registration order. Failures do not stop later
// jobs; the returned error joins all of them.
func (s *Service) RunOnce(ctx context.Context) error {
	jobs := s.registry.Jobs()
	cycleCtx := s.logg.WithField(ctx, "jobs", len(jobs))
	s.logg.Info(cycleCtx, "cron.cycle_start")

	var errs error
	for _, job := range jobs {
		if err := s.attempt(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	s.logg.Info(s.logg.WithField(cycleCtx, "failed", len(multierr.Errors(errs))), "cron.cycle_done")
	return errs
}

// attempt takes the job's lock and runs it. A lock held elsewhere is a skip,
// not a failure.
func (s *Service) attempt(ctx context.Context, job Job) error {
	name := job.Name()
	ctx = s.logg.WithJob(ctx, name)

	acquired, err := s.lock.Acquire(ctx, name)
	switch {
	case err != nil:
		s.metrics.ObserveRun(name, metrics.OutcomeFailure, 0)
		return fmt.Errorf("lock acquire: %w", err)
	case !acquired:
		s.metrics.ObserveRun(name, metrics.OutcomeSkipped, 0)
		s.logg.Info(ctx, "cron.job_skipped")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	started := time.Now()
	err = s.execute(ctx, job)
	took := time.Since(started)

	doneCtx := s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.metrics.ObserveRun(name, metrics.OutcomeFailure, took)
		s.logg.Error(doneCtx, "cron.job_failed", err)
		return err
	}
	s.metrics.ObserveRun(name, metrics.OutcomeSuccess, took)
	s.logg.Info(doneCtx, "cron.job_done")
	return nil
}

// execute runs job under the configured timeout and turns a panic into an
// error.
func (s *Service) execute(ctx context.Context, job Job) (err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}
