// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config files searched in order. The first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trunkcast/config.yaml",
	"/etc/trunkcast/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3860,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:      "/data/trunkcast.duckdb",
			MaxMemory: "1GB",
		},
		NATS: NATSConfig{
			EmbeddedServer: true,
			URL:            "nats://127.0.0.1:4222",
			ServerName:     "trunkcast",
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      256 << 20, // 256MB
			MaxStore:       4 << 30,   // 4GB
			MQTTEnabled:    true,
			MQTTHost:       "0.0.0.0",
			MQTTPort:       1883,
		},
		Delivery: DeliveryConfig{
			Transport:            "memory",
			Topic:                "delivery.units",
			PoisonTopic:          "delivery.poison",
			RetryMaxRetries:      3,
			RetryInitialInterval: 500 * time.Millisecond,
			RetryMaxInterval:     30 * time.Second,
			RetryMultiplier:      2.0,
			ThrottlePerSecond:    0,
			SubscribersCount:     4,
			QueueGroup:           "delivery-workers",
			DurableName:          "delivery",
			AckWaitTimeout:       60 * time.Second,
			CloseTimeout:         30 * time.Second,
			Dedup: DedupConfig{
				Enabled: false,
				Path:    "",
				TTL:     24 * time.Hour,
			},
		},
		Forwarder: ForwarderConfig{
			Timeout:         10 * time.Second,
			RatePerSecond:   0,
			Burst:           1,
			BreakerFailures: 5,
			BreakerTimeout:  60 * time.Second,
			BreakerInterval: time.Minute,
		},
		Publisher: PublisherConfig{
			ConnectTimeout:  5 * time.Second,
			PublishTimeout:  5 * time.Second,
			DuplicateWindow: 2 * time.Minute,
			MaxAge:          7 * 24 * time.Hour,
		},
		Prune: PruneConfig{
			Enabled:  true,
			Schedule: "@every 1h",
			Timeout:  10 * time.Minute,
		},
		API: APIConfig{
			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Environment: "production",
			SampleRate:  1.0,
		},
	}
}

// Load builds the configuration from three layers, each overriding the last:
//  1. built-in defaults
//  2. YAML config file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables listed in envMappings
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are keys that accept a comma-separated string from env.
var sliceConfigPaths = []string{
	"server.allowed_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":           "server.host",
	"http_port":           "server.port",
	"allowed_origins":     "server.allowed_origins",
	"shutdown_timeout":    "server.shutdown_timeout",
	"log_level":           "logging.level",
	"log_format":          "logging.format",
	"log_caller":          "logging.caller",
	"database_path":       "database.path",
	"database_max_memory": "database.max_memory",

	"nats_embedded":  "nats.embedded_server",
	"nats_url":       "nats.url",
	"nats_host":      "nats.host",
	"nats_port":      "nats.port",
	"nats_store_dir": "nats.store_dir",
	"mqtt_enabled":   "nats.mqtt_enabled",
	"mqtt_host":      "nats.mqtt_host",
	"mqtt_port":      "nats.mqtt_port",

	"delivery_transport":   "delivery.transport",
	"delivery_retries":     "delivery.retry_max_retries",
	"delivery_subscribers": "delivery.subscribers_count",
	"delivery_throttle":    "delivery.throttle_per_second",
	"dedup_enabled":        "delivery.dedup.enabled",
	"dedup_path":           "delivery.dedup.path",
	"dedup_ttl":            "delivery.dedup.ttl",

	"forward_timeout":          "forwarder.timeout",
	"forward_rate_per_second":  "forwarder.rate_per_second",
	"forward_breaker_failures": "forwarder.breaker_failures",

	"publish_timeout": "publisher.publish_timeout",

	"prune_enabled":  "prune.enabled",
	"prune_schedule": "prune.schedule",
	"prune_timeout":  "prune.timeout",

	"ingest_api_key": "api.ingest_key",

	"sentry_dsn":         "telemetry.dsn",
	"sentry_environment": "telemetry.environment",
}

// envTransformFunc maps a known environment variable to its koanf path.
// Unknown variables map to "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
