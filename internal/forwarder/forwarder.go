// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package forwarder sends events to federated peer instances over HTTP.
//
// A forward is a single POST to {base_url}/api/radio/{kind}/forward. There is
// no retry here; a failed forward returns a *DeliveryError and the delivery
// queue decides whether to try again. Each peer has its own circuit breaker
// and optional rate limiter, so one dead peer never slows the others.
package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/telemetry"
)

// UserAgent is sent on every forward.
const UserAgent = "Trunkcast-Forwarder/1.0"

// maxLoggedBody bounds the response body kept for the audit log.
const maxLoggedBody = 512

// Config configures a Forwarder.
type Config struct {
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	BreakerInterval time.Duration
}

// DefaultConfig returns forwarder defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  60 * time.Second,
		BreakerInterval: time.Minute,
	}
}

// Request is one event bound for one peer.
type Request struct {
	Kind            models.EventKind
	EventID         string
	DestinationID   int64
	DestinationName string
	BaseURL         string
	// Payload is posted as is. It already carries the peer's recorder key.
	Payload models.Payload
}

// Result describes a successful forward.
type Result struct {
	StatusCode int
	Body       string
	Duration   time.Duration
}

// Forwarder posts events to peers. It is safe for concurrent use.
type Forwarder struct {
	cfg      Config
	client   *http.Client
	reporter telemetry.Reporter
	logger   zerolog.Logger

	mu    sync.Mutex
	peers map[int64]*peer
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithHTTPClient replaces the HTTP client. The client's Timeout is left as is.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Forwarder) { f.client = c }
}

// New creates a Forwarder. A nil reporter discards captured errors.
func New(cfg Config, reporter telemetry.Reporter, opts ...Option) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	cfg.BreakerTimeout = defaultBreakerTimeout(cfg.BreakerTimeout)
	if reporter == nil {
		reporter = telemetry.Nop{}
	}

	f := &Forwarder{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		reporter: reporter,
		logger:   logging.WithComponent("forwarder"),
		peers:    make(map[int64]*peer),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Endpoint returns the forward URL for a peer base URL and event kind.
func Endpoint(baseURL string, kind models.EventKind) string {
	return strings.TrimRight(baseURL, "/") + "/api/radio/" + string(kind) + "/forward"
}

func (f *Forwarder) peerFor(req *Request) *peer {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[req.DestinationID]
	if !ok {
		p = newPeer(req.DestinationName, &f.cfg)
		f.peers[req.DestinationID] = p
	}
	return p
}

// Forward sends req to its peer once.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Result, error) {
	res, err := f.forward(ctx, &req)
	metrics.RecordForward(req.DestinationName, err)
	if err != nil {
		f.logFailure(ctx, &req, err)
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("component", "forwarder").
		Str("destination", req.DestinationName).
		Str("event_id", req.EventID).
		Int("status", res.StatusCode).
		Dur("duration", res.Duration).
		Str("response", res.Body).
		Msg("event forwarded")
	return res, nil
}

func (f *Forwarder) forward(ctx context.Context, req *Request) (*Result, error) {
	endpoint, err := validateBaseURL(req)
	if err != nil {
		return nil, err
	}

	p := f.peerFor(req)
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, f.deliveryError(req, ErrorCodeRateLimited, 0, err)
		}
	}

	res, err := p.breaker.Execute(func() (*Result, error) {
		return f.post(ctx, req, endpoint)
	})
	if isBreakerRejection(err) {
		return nil, f.deliveryError(req, ErrorCodeCircuitOpen, 0, err)
	}
	return res, err
}

func validateBaseURL(req *Request) (string, error) {
	u, err := url.Parse(req.BaseURL)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return Endpoint(req.BaseURL, req.Kind), nil
	}
	if err == nil {
		err = fmt.Errorf("base url %q must be absolute http(s)", req.BaseURL)
	}
	return "", &DeliveryError{
		Code:        ErrorCodeInvalidConfig,
		Destination: req.DestinationName,
		EventID:     req.EventID,
		Err:         err,
	}
}

func (f *Forwarder) post(ctx context.Context, req *Request, endpoint string) (*Result, error) {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, f.deliveryError(req, ErrorCodeInvalidConfig, 0, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, f.deliveryError(req, ErrorCodeInvalidConfig, 0, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Correlation-ID", id)
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, f.deliveryError(req, classifyHTTPError(err), 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		respBody = []byte("(failed to read response)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, f.deliveryError(req, classifyHTTPStatusCode(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("peer returned %d: %s", resp.StatusCode, truncate(respBody, maxLoggedBody)))
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       truncate(respBody, maxLoggedBody),
		Duration:   time.Since(start),
	}, nil
}

func (f *Forwarder) deliveryError(req *Request, code string, status int, err error) *DeliveryError {
	return &DeliveryError{
		Code:        code,
		Destination: req.DestinationName,
		EventID:     req.EventID,
		StatusCode:  status,
		Transient:   isTransientCode(code),
		Err:         err,
	}
}

func (f *Forwarder) logFailure(ctx context.Context, req *Request, err error) {
	ev := logging.Ctx(ctx).Warn().
		Str("component", "forwarder").
		Str("destination", req.DestinationName).
		Str("event_id", req.EventID).
		Err(err)
	tags := map[string]string{
		"destination": req.DestinationName,
		"event_id":    req.EventID,
		"kind":        string(req.Kind),
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		ev = ev.Str("code", de.Code).Int("status", de.StatusCode).Bool("transient", de.Transient)
		tags["code"] = de.Code
		if de.StatusCode != 0 {
			tags["status"] = strconv.Itoa(de.StatusCode)
		}
	}
	ev.Msg("forward failed")
	f.reporter.CaptureError(ctx, err, tags)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
