// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/trunkcast/internal/config"
	"github.com/tomtom215/trunkcast/internal/forwarder"
	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/publisher"
	"github.com/tomtom215/trunkcast/internal/queue"
	"github.com/tomtom215/trunkcast/internal/telemetry"
	ws "github.com/tomtom215/trunkcast/internal/websocket"
)

//nolint:gochecknoinits // Test logger setup
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func TestRouterConfigKeepsDefaultsForZeroValues(t *testing.T) {
	t.Parallel()

	got := routerConfig(&config.DeliveryConfig{})
	want := queue.DefaultRouterConfig()
	if got != want {
		t.Errorf("routerConfig(zero) = %+v, want %+v", got, want)
	}

	got = routerConfig(&config.DeliveryConfig{
		RetryMaxRetries:   7,
		RetryMultiplier:   1.5,
		PoisonTopic:       "dead",
		ThrottlePerSecond: 40,
	})
	if got.RetryMaxRetries != 7 || got.RetryMultiplier != 1.5 {
		t.Errorf("retry = %d/%v, want 7/1.5", got.RetryMaxRetries, got.RetryMultiplier)
	}
	if got.PoisonQueueTopic != "dead" {
		t.Errorf("PoisonQueueTopic = %q, want dead", got.PoisonQueueTopic)
	}
	if got.ThrottlePerSecond != 40 {
		t.Errorf("ThrottlePerSecond = %d, want 40", got.ThrottlePerSecond)
	}
}

func TestForwarderConfig(t *testing.T) {
	t.Parallel()

	got := forwarderConfig(&config.ForwarderConfig{Timeout: 3 * time.Second, RatePerSecond: 5, Burst: 2})
	def := forwarder.DefaultConfig()
	if got.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", got.Timeout)
	}
	if got.BreakerFailures != def.BreakerFailures {
		t.Errorf("BreakerFailures = %d, want default %d", got.BreakerFailures, def.BreakerFailures)
	}
	if got.RatePerSecond != 5 || got.Burst != 2 {
		t.Errorf("rate = %v/%d, want 5/2", got.RatePerSecond, got.Burst)
	}
}

func TestPublisherConfigHasNoURL(t *testing.T) {
	t.Parallel()

	got := publisherConfig(&config.PublisherConfig{PublishTimeout: time.Second})
	if got.URL != "" {
		t.Errorf("URL = %q, want empty base", got.URL)
	}
	if got.PublishTimeout != time.Second {
		t.Errorf("PublishTimeout = %v, want 1s", got.PublishTimeout)
	}
	if got.ConnectTimeout != publisher.DefaultConfig("").ConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want default", got.ConnectTimeout)
	}
}

func TestOpenDedupDisabled(t *testing.T) {
	t.Parallel()

	store, err := openDedup(&config.DedupConfig{})
	if err != nil {
		t.Fatalf("openDedup() error = %v", err)
	}
	if store != nil {
		t.Error("openDedup() returned a store while disabled")
	}
}

func TestDeliveryRouterFactoryBuildsFreshRouters(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Delivery: config.DeliveryConfig{Transport: config.TransportMemory}}
	logger := queue.NewLoggerAdapter("test")
	transport, err := newTransport(cfg, "", logger)
	if err != nil {
		t.Fatalf("newTransport() error = %v", err)
	}
	defer transport.Close()

	exec := queue.NewExecutor(
		forwarder.New(forwarder.DefaultConfig(), telemetry.NewLogReporter()),
		nil,
		publisher.NewPool(publisher.DefaultConfig("")),
		ws.NewHub(),
	)
	build := deliveryRouterFactory(&cfg.Delivery, transport, exec, queue.DefaultTopic, logger)

	for i := 0; i < 2; i++ {
		router, err := build()
		if err != nil {
			t.Fatalf("build %d: error = %v", i, err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- router.Run(ctx) }()

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && !router.IsRunning() {
			time.Sleep(5 * time.Millisecond)
		}
		if !router.IsRunning() {
			t.Fatalf("build %d: router never started", i)
		}
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("build %d: router did not stop", i)
		}
	}
}
