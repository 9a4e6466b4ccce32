// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/trunkcast/internal/broker"
	"github.com/tomtom215/trunkcast/internal/config"
	"github.com/tomtom215/trunkcast/internal/dedup"
	"github.com/tomtom215/trunkcast/internal/forwarder"
	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/publisher"
	"github.com/tomtom215/trunkcast/internal/queue"
	"github.com/tomtom215/trunkcast/internal/supervisor/services"
)

// startBroker starts the embedded NATS server when configured. A nil server
// means an external broker at cfg.NATS.URL is used.
func startBroker(cfg *config.Config) (*broker.Server, error) {
	if !cfg.NATS.EmbeddedServer {
		logging.Info().Str("url", cfg.NATS.URL).Msg("Using external NATS server")
		return nil, nil
	}

	srv, err := broker.Start(broker.Config{
		ServerName:  cfg.NATS.ServerName,
		Host:        cfg.NATS.Host,
		Port:        cfg.NATS.Port,
		StoreDir:    cfg.NATS.StoreDir,
		MaxMemory:   cfg.NATS.MaxMemory,
		MaxStore:    cfg.NATS.MaxStore,
		MQTTEnabled: cfg.NATS.MQTTEnabled,
		MQTTHost:    cfg.NATS.MQTTHost,
		MQTTPort:    cfg.NATS.MQTTPort,
	})
	if err != nil {
		return nil, fmt.Errorf("start embedded NATS: %w", err)
	}
	logging.Info().Str("url", srv.ClientURL()).Bool("mqtt", cfg.NATS.MQTTEnabled).Msg("Embedded NATS server started")
	return srv, nil
}

// natsURL is the client URL of the embedded broker, or the configured one.
func natsURL(cfg *config.Config, srv *broker.Server) string {
	if srv != nil {
		return srv.ClientURL()
	}
	return cfg.NATS.URL
}

func newTransport(cfg *config.Config, url string, logger watermill.LoggerAdapter) (*queue.Transport, error) {
	if cfg.Delivery.Transport != config.TransportNATS {
		logging.Warn().Msg("Delivery transport is in-memory; undelivered units are lost on restart")
		return queue.NewMemoryTransport(logger, cfg.Delivery.Topic), nil
	}

	t, err := queue.NewNATSTransport(queue.NATSConfig{
		URL:              url,
		QueueGroup:       cfg.Delivery.QueueGroup,
		DurableName:      cfg.Delivery.DurableName,
		SubscribersCount: cfg.Delivery.SubscribersCount,
		AckWaitTimeout:   cfg.Delivery.AckWaitTimeout,
		CloseTimeout:     cfg.Delivery.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS transport: %w", err)
	}
	logging.Info().Str("url", url).Str("topic", cfg.Delivery.Topic).Msg("Delivery transport connected to JetStream")
	return t, nil
}

func forwarderConfig(cfg *config.ForwarderConfig) forwarder.Config {
	fc := forwarder.DefaultConfig()
	if cfg.Timeout > 0 {
		fc.Timeout = cfg.Timeout
	}
	if cfg.BreakerFailures > 0 {
		fc.BreakerFailures = cfg.BreakerFailures
	}
	if cfg.BreakerTimeout > 0 {
		fc.BreakerTimeout = cfg.BreakerTimeout
	}
	if cfg.BreakerInterval > 0 {
		fc.BreakerInterval = cfg.BreakerInterval
	}
	fc.RatePerSecond = cfg.RatePerSecond
	fc.Burst = cfg.Burst
	return fc
}

// publisherConfig is the base for every MQTT target connection. Targets fill
// in URL and credentials.
func publisherConfig(cfg *config.PublisherConfig) publisher.Config {
	pc := publisher.DefaultConfig("")
	if cfg.ConnectTimeout > 0 {
		pc.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.PublishTimeout > 0 {
		pc.PublishTimeout = cfg.PublishTimeout
	}
	if cfg.DuplicateWindow > 0 {
		pc.DuplicateWindow = cfg.DuplicateWindow
	}
	pc.MaxAge = cfg.MaxAge
	return pc
}

func openDedup(cfg *config.DedupConfig) (*dedup.Store, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Delivery dedup store disabled")
		return nil, nil
	}
	store, err := dedup.Open(dedup.Config{Path: cfg.Path, TTL: cfg.TTL})
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}
	logging.Info().Str("path", cfg.Path).Dur("ttl", cfg.TTL).Msg("Delivery dedup store opened")
	return store, nil
}

func routerConfig(cfg *config.DeliveryConfig) queue.RouterConfig {
	rc := queue.DefaultRouterConfig()
	if cfg.CloseTimeout > 0 {
		rc.CloseTimeout = cfg.CloseTimeout
	}
	if cfg.RetryMaxRetries > 0 {
		rc.RetryMaxRetries = cfg.RetryMaxRetries
	}
	if cfg.RetryInitialInterval > 0 {
		rc.RetryInitialInterval = cfg.RetryInitialInterval
	}
	if cfg.RetryMaxInterval > 0 {
		rc.RetryMaxInterval = cfg.RetryMaxInterval
	}
	if cfg.RetryMultiplier > 0 {
		rc.RetryMultiplier = cfg.RetryMultiplier
	}
	if cfg.PoisonTopic != "" {
		rc.PoisonQueueTopic = cfg.PoisonTopic
	}
	rc.ThrottlePerSecond = cfg.ThrottlePerSecond
	return rc
}

// deliveryRouterFactory builds a fresh router and subscriber for every start
// of the delivery service, since a Watermill router cannot be run twice.
func deliveryRouterFactory(cfg *config.DeliveryConfig, transport *queue.Transport, exec *queue.Executor, topic string, logger watermill.LoggerAdapter) services.DeliveryRouterFactory {
	rc := routerConfig(cfg)
	return func() (services.DeliveryRouter, error) {
		sub, err := transport.NewSubscriber()
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}
		router, err := queue.NewRouter(rc, transport.Publisher, logger)
		if err != nil {
			return nil, err
		}
		exec.Register(router, sub, topic)
		return router, nil
	}
}

// closeWithTimeout runs fn, giving up after timeout.
func closeWithTimeout(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Error during shutdown")
	}
}
