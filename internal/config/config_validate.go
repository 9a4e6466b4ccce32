// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/validation"
)

// Transport names accepted by delivery.transport.
const (
	TransportMemory = "memory"
	TransportNATS   = "nats"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateForwarder(); err != nil {
		return err
	}
	if err := c.validatePrune(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	return c.validateRegistry()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.EmbeddedServer {
		if c.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED=false")
		}
		return nil
	}
	if c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.Port < 1 || c.NATS.Port > 65535 {
		return fmt.Errorf("NATS_PORT must be between 1 and 65535, got %d", c.NATS.Port)
	}
	if c.NATS.MaxMemory <= 0 || c.NATS.MaxStore <= 0 {
		return fmt.Errorf("nats.max_memory and nats.max_store must be positive")
	}
	if c.NATS.MQTTEnabled && (c.NATS.MQTTPort < 1 || c.NATS.MQTTPort > 65535) {
		return fmt.Errorf("MQTT_PORT must be between 1 and 65535, got %d", c.NATS.MQTTPort)
	}
	return nil
}

func (c *Config) validateDelivery() error {
	d := c.Delivery
	switch d.Transport {
	case TransportMemory, TransportNATS:
	default:
		return fmt.Errorf("DELIVERY_TRANSPORT must be %q or %q, got %q", TransportMemory, TransportNATS, d.Transport)
	}
	if d.Topic == "" || d.PoisonTopic == "" {
		return fmt.Errorf("delivery.topic and delivery.poison_topic are required")
	}
	if d.Topic == d.PoisonTopic {
		return fmt.Errorf("delivery.poison_topic must differ from delivery.topic")
	}
	if d.RetryMaxRetries < 0 {
		return fmt.Errorf("DELIVERY_RETRIES must be non-negative, got %d", d.RetryMaxRetries)
	}
	if d.RetryMultiplier < 1 {
		return fmt.Errorf("delivery.retry_multiplier must be at least 1, got %v", d.RetryMultiplier)
	}
	if d.ThrottlePerSecond < 0 {
		return fmt.Errorf("DELIVERY_THROTTLE must be non-negative, got %d", d.ThrottlePerSecond)
	}
	if d.SubscribersCount < 1 {
		return fmt.Errorf("DELIVERY_SUBSCRIBERS must be at least 1, got %d", d.SubscribersCount)
	}
	if d.Dedup.Enabled && d.Dedup.TTL <= 0 {
		return fmt.Errorf("DEDUP_TTL must be positive when dedup is enabled")
	}
	return nil
}

func (c *Config) validateForwarder() error {
	if c.Forwarder.Timeout <= 0 {
		return fmt.Errorf("FORWARD_TIMEOUT must be positive")
	}
	if c.Forwarder.RatePerSecond < 0 {
		return fmt.Errorf("FORWARD_RATE_PER_SECOND must be non-negative")
	}
	if c.Forwarder.BreakerFailures == 0 {
		return fmt.Errorf("FORWARD_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

func (c *Config) validatePrune() error {
	if !c.Prune.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.Prune.Schedule); err != nil {
		return fmt.Errorf("PRUNE_SCHEDULE %q is invalid: %w", c.Prune.Schedule, err)
	}
	if c.Prune.Timeout <= 0 {
		return fmt.Errorf("PRUNE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.RateLimitRequests < 1 {
		return fmt.Errorf("api.rate_limit_requests must be at least 1")
	}
	if c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("api.rate_limit_window must be positive")
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate)
	}
	return nil
}

// validateRegistry checks each seed entry and rejects duplicate ids.
func (c *Config) validateRegistry() error {
	r := c.Registry

	systems := make(map[int64]bool, len(r.Systems))
	for i := range r.Systems {
		s := &r.Systems[i]
		if err := validation.ValidateStruct(s); err != nil {
			return fmt.Errorf("registry.systems[%d]: %w", i, err)
		}
		if s.PruneEnabled && s.PruneAfter <= 0 {
			return fmt.Errorf("registry.systems[%d]: prune_after must be positive when prune_enabled is set", i)
		}
		if systems[s.ID] {
			return fmt.Errorf("registry.systems: duplicate id %d", s.ID)
		}
		systems[s.ID] = true
	}

	seen := make(map[int64]bool, len(r.Forwarders))
	for i := range r.Forwarders {
		f := &r.Forwarders[i]
		if err := validation.ValidateStruct(f); err != nil {
			return fmt.Errorf("registry.forwarders[%d]: %w", i, err)
		}
		if seen[f.ID] {
			return fmt.Errorf("registry.forwarders: duplicate id %d", f.ID)
		}
		seen[f.ID] = true
	}

	clear(seen)
	for i := range r.MQTTTargets {
		m := &r.MQTTTargets[i]
		if err := validation.ValidateStruct(m); err != nil {
			return fmt.Errorf("registry.mqtt_targets[%d]: %w", i, err)
		}
		if seen[m.ID] {
			return fmt.Errorf("registry.mqtt_targets: duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}

	keys := make(map[string]bool, len(r.Recorders))
	for i := range r.Recorders {
		rec := &r.Recorders[i]
		if err := validation.ValidateStruct(rec); err != nil {
			return fmt.Errorf("registry.recorders[%d]: %w", i, err)
		}
		if keys[rec.Key] {
			return fmt.Errorf("registry.recorders: duplicate key %q", rec.Key)
		}
		keys[rec.Key] = true
	}
	return nil
}

// CORSWildcard reports whether any allowed origin is "*".
func (c *Config) CORSWildcard() bool {
	for _, o := range c.Server.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
