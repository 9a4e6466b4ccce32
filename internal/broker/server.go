// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package broker runs the embedded NATS server.
//
// The server has JetStream enabled for durable queues and, optionally, an MQTT
// listener. MQTT clients subscribing to "trunkcast/transmission" receive what
// the publisher writes to the "trunkcast.transmission" subject.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trunkcast/internal/logging"
)

// RandomPort asks the server to pick a free port.
const RandomPort = server.RANDOM_PORT

// Config configures the embedded server.
type Config struct {
	ServerName string
	Host       string
	Port       int
	StoreDir   string
	MaxMemory  int64
	MaxStore   int64

	MQTTEnabled bool
	MQTTHost    string
	MQTTPort    int

	// ReadyTimeout bounds the wait for the server to accept connections.
	ReadyTimeout time.Duration
}

// Server wraps the NATS server with lifecycle management.
type Server struct {
	ns        *server.Server
	cfg       Config
	clientURL string
}

// Start creates and starts an embedded server. It returns once the server
// accepts client connections.
func Start(cfg Config) (*Server, error) {
	if cfg.ServerName == "" {
		cfg.ServerName = "trunkcast"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}

	opts := &server.Options{
		ServerName:         cfg.ServerName,
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		MaxPayload:         8 * 1024 * 1024,
	}
	if cfg.MQTTEnabled {
		opts.MQTT = server.MQTTOpts{
			Host: cfg.MQTTHost,
			Port: cfg.MQTTPort,
		}
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{log: logging.WithComponent("nats-server")}, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(cfg.ReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", cfg.ReadyTimeout)
	}

	return &Server{ns: ns, cfg: cfg, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *Server) ClientURL() string {
	return s.clientURL
}

// Running reports whether the server is up.
func (s *Server) Running() bool {
	return s.ns.Running()
}

// JetStreamEnabled reports whether JetStream is active.
func (s *Server) JetStreamEnabled() bool {
	return s.ns.JetStreamEnabled()
}

// Shutdown stops the server and waits for it to exit, or for ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ns.Shutdown()

	done := make(chan struct{})
	go func() {
		s.ns.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// natsLogger adapts zerolog to the nats-server Logger interface.
type natsLogger struct {
	log zerolog.Logger
}

func (l *natsLogger) Noticef(format string, v ...any) { l.log.Info().Msgf(format, v...) }
func (l *natsLogger) Warnf(format string, v ...any)   { l.log.Warn().Msgf(format, v...) }
func (l *natsLogger) Fatalf(format string, v ...any)  { l.log.Error().Msgf(format, v...) }
func (l *natsLogger) Errorf(format string, v ...any)  { l.log.Error().Msgf(format, v...) }
func (l *natsLogger) Debugf(format string, v ...any)  { l.log.Debug().Msgf(format, v...) }
func (l *natsLogger) Tracef(format string, v ...any)  { l.log.Trace().Msgf(format, v...) }

var _ server.Logger = (*natsLogger)(nil)
