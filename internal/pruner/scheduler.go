// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package pruner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/trunkcast/internal/logging"
)

// DefaultSchedule runs a sweep every hour.
const DefaultSchedule = "@every 1h"

// Sweeper runs one retention sweep.
type Sweeper interface {
	PruneAll(ctx context.Context) Summary
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Schedule is a standard cron expression or descriptor such as "@every 1h".
	Schedule string
	// Timeout bounds a single sweep.
	Timeout time.Duration
}

// Scheduler runs sweeps on a cron schedule. A sweep still running when the
// next one is due causes that run to be skipped.
type Scheduler struct {
	cfg     SchedulerConfig
	sweeper Sweeper

	mu     sync.Mutex
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler validates the schedule and returns a stopped Scheduler.
func NewScheduler(sweeper Sweeper, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", cfg.Schedule, err)
	}
	return &Scheduler{cfg: cfg, sweeper: sweeper}, nil
}

// Start begins running sweeps. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	if _, err := c.AddFunc(s.cfg.Schedule, s.run); err != nil {
		s.cancel()
		return fmt.Errorf("schedule prune: %w", err)
	}
	c.Start()
	s.c = c

	logging.Info().Str("schedule", s.cfg.Schedule).Dur("timeout", s.cfg.Timeout).Msg("prune scheduler started")
	return nil
}

// Stop cancels a running sweep and waits for it to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		logging.Info().Msg("prune scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow performs one sweep immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) Summary {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.sweeper.PruneAll(runCtx)
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	sum := s.RunNow(ctx)
	if err := sum.Err(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Int("failures", sum.Failures).Msg("scheduled prune finished with failures")
	}
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		logging.Warn().Err(err).Msg("prune scheduler did not stop in time")
	}
	return ctx.Err()
}

func (s *Scheduler) String() string {
	return "prune-scheduler"
}
