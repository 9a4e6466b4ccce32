// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package config

import (
	"time"

	"github.com/tomtom215/trunkcast/internal/models"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Database   DatabaseConfig   `koanf:"database"`
	NATS       NATSConfig       `koanf:"nats"`
	Delivery   DeliveryConfig   `koanf:"delivery"`
	Forwarder  ForwarderConfig  `koanf:"forwarder"`
	Publisher  PublisherConfig  `koanf:"publisher"`
	Prune      PruneConfig      `koanf:"prune"`
	API        APIConfig        `koanf:"api"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Registry   RegistryConfig   `koanf:"registry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// AllowedOrigins lists origins accepted by CORS and the WebSocket
	// handshake. "*" allows any origin.
	// Env: ALLOWED_ORIGINS (comma-separated)
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file. ":memory:" keeps everything in memory.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// NATSConfig configures the broker used for durable publishing and, with the
// nats transport, the delivery queue.
type NATSConfig struct {
	// EmbeddedServer starts an in-process nats-server with JetStream.
	// If false, URL must point at an external server.
	EmbeddedServer bool   `koanf:"embedded_server"`
	URL            string `koanf:"url"`
	ServerName     string `koanf:"server_name"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// MQTTEnabled opens the embedded server's MQTT listener so devices can
	// subscribe to published queues as MQTT topics.
	MQTTEnabled bool   `koanf:"mqtt_enabled"`
	MQTTHost    string `koanf:"mqtt_host"`
	MQTTPort    int    `koanf:"mqtt_port"`
}

// DeliveryConfig configures the delivery queue and its router.
type DeliveryConfig struct {
	// Transport is "memory" (in-process) or "nats" (JetStream, durable).
	Transport   string `koanf:"transport"`
	Topic       string `koanf:"topic"`
	PoisonTopic string `koanf:"poison_topic"`

	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	RetryMultiplier      float64       `koanf:"retry_multiplier"`

	// ThrottlePerSecond limits unit execution rate (0 = unlimited).
	ThrottlePerSecond int64 `koanf:"throttle_per_second"`

	SubscribersCount int           `koanf:"subscribers_count"`
	QueueGroup       string        `koanf:"queue_group"`
	DurableName      string        `koanf:"durable_name"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`

	Dedup DedupConfig `koanf:"dedup"`
}

// DedupConfig configures the idempotency store.
type DedupConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path is the Badger directory. Empty keeps keys in memory only.
	Path string        `koanf:"path"`
	TTL  time.Duration `koanf:"ttl"`
}

// ForwarderConfig configures HTTP forwarding to peer instances.
type ForwarderConfig struct {
	Timeout         time.Duration `koanf:"timeout"`
	RatePerSecond   float64       `koanf:"rate_per_second"`
	Burst           int           `koanf:"burst"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
	BreakerInterval time.Duration `koanf:"breaker_interval"`
}

// PublisherConfig configures durable publishing to MQTT targets.
type PublisherConfig struct {
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	PublishTimeout  time.Duration `koanf:"publish_timeout"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`
	MaxAge          time.Duration `koanf:"max_age"`
}

// PruneConfig configures the retention sweep.
type PruneConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Schedule string        `koanf:"schedule"`
	Timeout  time.Duration `koanf:"timeout"`
}

// APIConfig configures the ingestion endpoints.
type APIConfig struct {
	// IngestKey must be presented in X-API-Key for local ingestion.
	// Env: INGEST_API_KEY
	IngestKey         string        `koanf:"ingest_key"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// SupervisorConfig configures the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// TelemetryConfig configures error reporting. With an empty DSN, captured
// errors are only logged.
type TelemetryConfig struct {
	// Env: SENTRY_DSN
	DSN         string  `koanf:"dsn"`
	Environment string  `koanf:"environment"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// RegistryConfig seeds the registries at startup. Entries are upserted by id.
type RegistryConfig struct {
	Systems     []models.System     `koanf:"systems"`
	Forwarders  []models.Forwarder  `koanf:"forwarders"`
	MQTTTargets []models.MQTTTarget `koanf:"mqtt_targets"`
	Recorders   []models.Recorder   `koanf:"recorders"`
}
