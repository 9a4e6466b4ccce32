// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package pruner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	runs    atomic.Int32
	block   chan struct{}
	started chan struct{}
}

func (c *countingSweeper) PruneAll(ctx context.Context) Summary {
	c.runs.Add(1)
	if c.started != nil {
		select {
		case c.started <- struct{}{}:
		default:
		}
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	return Summary{}
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	if _, err := NewScheduler(&countingSweeper{}, SchedulerConfig{Schedule: "every tuesday"}); err == nil {
		t.Error("NewScheduler() error = nil for invalid schedule")
	}
	s, err := NewScheduler(&countingSweeper{}, SchedulerConfig{})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if s.cfg.Schedule != DefaultSchedule {
		t.Errorf("Schedule = %q, want %q", s.cfg.Schedule, DefaultSchedule)
	}
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	t.Parallel()

	sw := &countingSweeper{started: make(chan struct{}, 1)}
	s, err := NewScheduler(sw, SchedulerConfig{Schedule: "@every 1s", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case <-sw.started:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run")
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	sw := &countingSweeper{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s, err := NewScheduler(sw, SchedulerConfig{Schedule: "@every 1s", Timeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	<-sw.started
	time.Sleep(2500 * time.Millisecond)
	if got := sw.runs.Load(); got != 1 {
		t.Errorf("runs while first sweep blocked = %d, want 1", got)
	}

	close(sw.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestSchedulerServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(&countingSweeper{}, SchedulerConfig{Schedule: "@every 1h", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestRunNowAppliesTimeout(t *testing.T) {
	t.Parallel()

	sw := &countingSweeper{block: make(chan struct{})}
	s, err := NewScheduler(sw, SchedulerConfig{Schedule: "@every 1h", Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	s.RunNow(context.Background())
	if time.Since(start) > time.Second {
		t.Error("RunNow ignored the sweep timeout")
	}
}
