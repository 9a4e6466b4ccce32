// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package forwarder

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
)

// peer holds the per-destination breaker and limiter.
type peer struct {
	breaker *gobreaker.CircuitBreaker[*Result]
	limiter *rate.Limiter
}

func newPeer(name string, cfg *Config) *peer {
	threshold := cfg.BreakerFailures
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A peer answering 4xx is reachable; only transient failures count.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, int(to))
			logging.Warn().
				Str("destination", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("forward circuit breaker state changed")
		},
	}

	p := &peer{breaker: gobreaker.NewCircuitBreaker[*Result](settings)}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return p
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// BreakerState returns the breaker state name for a destination id, or
// "closed" for a destination never seen.
func (f *Forwarder) BreakerState(destinationID int64) string {
	f.mu.Lock()
	p, ok := f.peers[destinationID]
	f.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed.String()
	}
	return p.breaker.State().String()
}

func defaultBreakerTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}
