// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package telemetry reports captured delivery and prune failures.
//
// Components receive a Reporter and call CaptureError at the unit boundary.
// With a Sentry DSN configured, errors are sent to Sentry; otherwise they are
// only logged.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trunkcast/internal/logging"
)

// Reporter receives errors that were handled but should be surfaced to
// operators.
type Reporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
}

// Config configures New.
type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// New returns a Sentry reporter when cfg.DSN is set, a log reporter otherwise.
// The returned flush func must be called before exit.
func New(cfg Config) (Reporter, func(), error) {
	if cfg.DSN == "" {
		return NewLogReporter(), func() {}, nil
	}
	r, err := NewSentryReporter(cfg)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { r.Flush(2 * time.Second) }, nil
}

// LogReporter writes captured errors to the log at error level.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter returns a reporter logging through the global logger.
func NewLogReporter() *LogReporter {
	return &LogReporter{logger: logging.WithComponent("telemetry")}
}

// CaptureError implements Reporter.
func (r *LogReporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	ev := r.logger.Error().Err(err)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	for k, v := range tags {
		ev = ev.Str(k, v)
	}
	ev.Msg("captured error")
}

// SentryReporter sends captured errors to Sentry and logs them.
type SentryReporter struct {
	hub *sentry.Hub
	log *LogReporter
}

// NewSentryReporter creates a reporter with its own Sentry client.
func NewSentryReporter(cfg Config) (*SentryReporter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  cfg.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	return &SentryReporter{
		hub: sentry.NewHub(client, sentry.NewScope()),
		log: NewLogReporter(),
	}, nil
}

// CaptureError implements Reporter.
func (r *SentryReporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.log.CaptureError(ctx, err, tags)
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if id := logging.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		r.hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// Nop discards everything.
type Nop struct{}

// CaptureError implements Reporter.
func (Nop) CaptureError(context.Context, error, map[string]string) {}

// Captured is one error held by a Recorder.
type Captured struct {
	Err  error
	Tags map[string]string
}

// Recorder keeps captured errors in memory.
type Recorder struct {
	mu       sync.Mutex
	captured []Captured
}

// CaptureError implements Reporter.
func (r *Recorder) CaptureError(_ context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, Captured{Err: err, Tags: tags})
}

// Errors returns a copy of everything captured so far.
func (r *Recorder) Errors() []Captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Captured, len(r.captured))
	copy(out, r.captured)
	return out
}

var (
	_ Reporter = (*LogReporter)(nil)
	_ Reporter = (*SentryReporter)(nil)
	_ Reporter = Nop{}
	_ Reporter = (*Recorder)(nil)
)
