// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/trunkcast/internal/queue"
)

type fakeRouter struct {
	running atomic.Bool
	runErr  error
	exitNow bool
}

func (f *fakeRouter) Run(ctx context.Context) error {
	if f.runErr != nil {
		return f.runErr
	}
	f.running.Store(true)
	defer f.running.Store(false)
	if f.exitNow {
		return nil
	}
	<-ctx.Done()
	return nil
}

func (f *fakeRouter) IsRunning() bool { return f.running.Load() }

func TestDeliveryRouterService_Serve(t *testing.T) {
	t.Parallel()

	r := &fakeRouter{}
	svc := NewDeliveryRouterService(func() (DeliveryRouter, error) { return r, nil })
	if svc.IsRunning() {
		t.Error("IsRunning() = true before Serve")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !svc.IsRunning() {
		time.Sleep(5 * time.Millisecond)
	}
	if !svc.IsRunning() {
		t.Fatal("IsRunning() = false while serving")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if svc.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestDeliveryRouterService_Errors(t *testing.T) {
	t.Parallel()

	buildErr := errors.New("subscriber unavailable")
	svc := NewDeliveryRouterService(func() (DeliveryRouter, error) { return nil, buildErr })
	if err := svc.Serve(context.Background()); !errors.Is(err, buildErr) {
		t.Errorf("Serve() = %v, want %v", err, buildErr)
	}

	runErr := errors.New("router failed")
	svc = NewDeliveryRouterService(func() (DeliveryRouter, error) { return &fakeRouter{runErr: runErr}, nil })
	if err := svc.Serve(context.Background()); !errors.Is(err, runErr) {
		t.Errorf("Serve() = %v, want %v", err, runErr)
	}

	svc = NewDeliveryRouterService(func() (DeliveryRouter, error) { return &fakeRouter{exitNow: true}, nil })
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("Serve() = nil after the router stopped on its own")
	}
}

func TestDeliveryRouterService_RebuildsWatermillRouter(t *testing.T) {
	t.Parallel()

	transport := queue.NewMemoryTransport(nil)
	defer transport.Close()

	var builds atomic.Int32
	build := func() (DeliveryRouter, error) {
		builds.Add(1)
		sub, err := transport.NewSubscriber()
		if err != nil {
			return nil, err
		}
		r, err := queue.NewRouter(queue.DefaultRouterConfig(), nil, nil)
		if err != nil {
			return nil, err
		}
		r.AddConsumerHandler("noop", queue.DefaultTopic, sub, func(*message.Message) error { return nil })
		return r, nil
	}
	svc := NewDeliveryRouterService(build)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && !svc.IsRunning() {
			time.Sleep(5 * time.Millisecond)
		}
		if !svc.IsRunning() {
			t.Fatalf("run %d: router never started", i)
		}
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: Serve did not return", i)
		}
	}

	if builds.Load() != 2 {
		t.Errorf("routers built = %d, want 2", builds.Load())
	}
}
