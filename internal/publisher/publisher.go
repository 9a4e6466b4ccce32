// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package publisher writes events to durable broker queues.
//
// A queue is a JetStream stream whose single subject is the queue name, stored
// on disk. The embedded server's MQTT listener exposes the same subjects to
// MQTT devices. Each Publisher owns one connection, opened on first use and
// never reconnected; a failed Publisher is discarded and replaced.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
	"github.com/tomtom215/trunkcast/internal/models"
)

// Config configures a Publisher.
type Config struct {
	URL      string
	Username string
	Password string

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	// DuplicateWindow is the stream's Nats-Msg-Id deduplication window.
	DuplicateWindow time.Duration

	// MaxAge bounds how long messages are retained (0 = forever).
	MaxAge time.Duration
}

// DefaultConfig returns publisher defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		ConnectTimeout:  5 * time.Second,
		PublishTimeout:  5 * time.Second,
		DuplicateWindow: 2 * time.Minute,
		MaxAge:          7 * 24 * time.Hour,
	}
}

// ForTarget returns base with the connection details of an MQTT target.
func ForTarget(base Config, t *models.MQTTTarget) Config {
	base.URL = t.URL()
	base.Username = t.Username
	base.Password = t.Password
	return base
}

// Publisher publishes to one broker over a single lazily opened connection.
// It is safe for concurrent use; calls are serialized.
type Publisher struct {
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	nc       *nats.Conn
	js       jetstream.JetStream
	declared map[string]bool
	closed   bool
}

// New returns an unconnected Publisher.
func New(cfg Config) *Publisher {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Publisher{
		cfg:      cfg,
		logger:   logging.WithComponent("publisher").With().Str("url", cfg.URL).Logger(),
		declared: make(map[string]bool),
	}
}

// StreamName derives the stream name for a queue. Stream names may not
// contain dots, so "trunkcast.transmission" becomes "TRUNKCAST_TRANSMISSION".
func StreamName(queue string) string {
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "/", "_", "\\", "_")
	return strings.ToUpper(r.Replace(queue))
}

// Publish persists data on queue. A non-empty msgID is sent as Nats-Msg-Id so
// the broker drops duplicates within the stream's duplicate window.
func (p *Publisher) Publish(ctx context.Context, queue string, data []byte, msgID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.publishLocked(ctx, queue, data, msgID)
	metrics.RecordPublish(queue, err)
	return err
}

func (p *Publisher) publishLocked(ctx context.Context, queue string, data []byte, msgID string) error {
	if p.closed {
		return &PublishError{Op: OpPublish, URL: p.cfg.URL, Queue: queue, Err: ErrClosed}
	}
	if err := p.connectLocked(ctx); err != nil {
		return err
	}
	if err := p.declareLocked(ctx, queue); err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}
	ack, err := p.js.Publish(pubCtx, queue, data, opts...)
	if err != nil {
		return &PublishError{Op: OpPublish, URL: p.cfg.URL, Queue: queue, Err: err}
	}

	p.logger.Debug().
		Str("queue", queue).
		Str("stream", ack.Stream).
		Uint64("seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("message persisted")
	return nil
}

func (p *Publisher) connectLocked(ctx context.Context) error {
	if p.nc != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &PublishError{Op: OpConnect, URL: p.cfg.URL, Err: err}
	}

	opts := []nats.Option{
		nats.Name("trunkcast-publisher"),
		nats.NoReconnect(),
		nats.Timeout(p.cfg.ConnectTimeout),
	}
	if p.cfg.Username != "" {
		opts = append(opts, nats.UserInfo(p.cfg.Username, p.cfg.Password))
	}

	nc, err := nats.Connect(p.cfg.URL, opts...)
	if err != nil {
		return &PublishError{Op: OpConnect, URL: p.cfg.URL, Err: err}
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return &PublishError{Op: OpConnect, URL: p.cfg.URL, Err: err}
	}

	p.nc = nc
	p.js = js
	p.logger.Debug().Msg("connected to broker")
	return nil
}

func (p *Publisher) declareLocked(ctx context.Context, queue string) error {
	if p.declared[queue] {
		return nil
	}
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName(queue),
		Subjects:   []string{queue},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		Discard:    jetstream.DiscardOld,
		MaxAge:     p.cfg.MaxAge,
		Duplicates: p.cfg.DuplicateWindow,
	})
	if err != nil {
		return &PublishError{Op: OpDeclare, URL: p.cfg.URL, Queue: queue, Err: err}
	}
	p.declared[queue] = true
	p.logger.Debug().Str("queue", queue).Msg("queue declared")
	return nil
}

// Connected reports whether the connection has been opened and is still up.
func (p *Publisher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nc != nil && p.nc.IsConnected()
}

// Close releases the connection. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain connection: %w", err)
	}
	return nil
}

// With runs fn with a fresh Publisher and always closes it afterwards,
// including when fn panics.
func With(ctx context.Context, cfg Config, fn func(context.Context, *Publisher) error) (err error) {
	p := New(cfg)
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, p)
}
