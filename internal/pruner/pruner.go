// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package pruner deletes transmissions older than their system's retention
// policy.
package pruner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/telemetry"
)

// Store is the persistence the pruner needs.
type Store interface {
	ListSystems(ctx context.Context) ([]models.System, error)
	ListExpiredTransmissions(ctx context.Context, systemID int64, cutoff time.Time) ([]string, error)
	DeleteTransmission(ctx context.Context, id string) error
}

// Notifier is told about every deleted transmission.
type Notifier interface {
	NotifyMutation(ctx context.Context, id, entityType, eventType string) error
}

// Summary reports one sweep.
type Summary struct {
	SystemsScanned       int
	TransmissionsDeleted int
	Failures             int
	Errors               []error
	Duration             time.Duration
}

// Err joins the per-system errors, or returns nil.
func (s *Summary) Err() error {
	return errors.Join(s.Errors...)
}

// Pruner applies retention policies.
type Pruner struct {
	store    Store
	notifier Notifier
	reporter telemetry.Reporter
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithNotifier emits a delete mutation per removed transmission.
func WithNotifier(n Notifier) Option {
	return func(p *Pruner) { p.notifier = n }
}

// WithReporter sets where per-system failures are reported.
func WithReporter(r telemetry.Reporter) Option {
	return func(p *Pruner) { p.reporter = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pruner) { p.now = now }
}

// New creates a Pruner.
func New(store Store, opts ...Option) *Pruner {
	p := &Pruner{
		store:    store,
		reporter: telemetry.Nop{},
		now:      time.Now,
		logger:   logging.WithComponent("pruner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PruneAll sweeps every system with pruning enabled. A failure in one system
// is recorded in the summary and the sweep moves on to the next system.
func (p *Pruner) PruneAll(ctx context.Context) Summary {
	start := time.Now()
	var sum Summary

	systems, err := p.store.ListSystems(ctx)
	if err != nil {
		err = fmt.Errorf("list systems: %w", err)
		p.logger.Error().Err(err).Msg("retention sweep aborted")
		p.reporter.CaptureError(ctx, err, map[string]string{"component": "pruner"})
		sum.Failures++
		sum.Errors = append(sum.Errors, err)
		sum.Duration = time.Since(start)
		metrics.RecordPrune(0, sum.Failures, sum.Duration)
		return sum
	}

	now := p.now()
	for i := range systems {
		sys := &systems[i]
		if !sys.PruneEnabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if sys.PruneAfter <= 0 {
			cerr := &models.ConfigurationError{Entity: "system", ID: sys.ID, Reason: "prune_after must be positive when pruning is enabled"}
			sum.Failures++
			sum.Errors = append(sum.Errors, cerr)
			p.logger.Error().Err(cerr).Int64("system_id", sys.ID).Msg("skipping system with invalid retention policy")
			p.reporter.CaptureError(ctx, cerr, map[string]string{"system_id": strconv.FormatInt(sys.ID, 10)})
			continue
		}
		sum.SystemsScanned++

		deleted, err := p.pruneSystem(ctx, sys, sys.Cutoff(now))
		sum.TransmissionsDeleted += deleted
		if err != nil {
			perr := &PruneError{SystemID: sys.ID, Deleted: deleted, Err: err}
			sum.Failures++
			sum.Errors = append(sum.Errors, perr)
			p.logger.Error().Err(err).Int64("system_id", sys.ID).Int("deleted", deleted).Msg("retention sweep of system failed")
			p.reporter.CaptureError(ctx, perr, map[string]string{"system_id": strconv.FormatInt(sys.ID, 10)})
		}
	}

	sum.Duration = time.Since(start)
	metrics.RecordPrune(sum.TransmissionsDeleted, sum.Failures, sum.Duration)

	p.logger.Info().
		Int("systems", sum.SystemsScanned).
		Int("deleted", sum.TransmissionsDeleted).
		Int("failures", sum.Failures).
		Dur("duration", sum.Duration).
		Msg("retention sweep completed")
	return sum
}

// pruneSystem deletes the expired transmissions of one system, each in its
// own transaction. It keeps going after a failed delete.
func (p *Pruner) pruneSystem(ctx context.Context, sys *models.System, cutoff time.Time) (int, error) {
	ids, err := p.store.ListExpiredTransmissions(ctx, sys.ID, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs []error
	for _, id := range ids {
		if err := p.store.DeleteTransmission(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++

		if p.notifier != nil {
			if err := p.notifier.NotifyMutation(ctx, id, string(models.EventKindTransmission), models.MutationDelete); err != nil {
				p.logger.Warn().Err(err).Str("transmission_id", id).Msg("failed to notify transmission delete")
			}
		}
	}

	if deleted > 0 {
		p.logger.Debug().Int64("system_id", sys.ID).Int("deleted", deleted).Time("cutoff", cutoff).Msg("pruned system")
	}
	return deleted, errors.Join(errs...)
}
