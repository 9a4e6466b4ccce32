// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/trunkcast/internal/forwarder"
	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/publisher"
	"github.com/tomtom215/trunkcast/internal/telemetry"
	"github.com/tomtom215/trunkcast/internal/websocket"
)

// RemoteForwarder posts one event to one peer.
type RemoteForwarder interface {
	Forward(ctx context.Context, req forwarder.Request) (*forwarder.Result, error)
}

// TargetLookup resolves MQTT targets at execution time. Unknown ids return an
// error wrapping models.ErrNotFound.
type TargetLookup interface {
	GetMQTTTarget(ctx context.Context, id int64) (*models.MQTTTarget, error)
}

// PublisherPool hands out one durable publisher per target.
type PublisherPool interface {
	Get(target *models.MQTTTarget) *publisher.Publisher
	Discard(targetID int64) error
}

// Emitter delivers events to real-time clients.
type Emitter interface {
	Emit(event string, data any, scope websocket.Scope) int
}

// Deduper remembers units that already completed.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Executor runs delivery units. It is the failure boundary of a unit: an
// error returned from Handle only affects the unit being handled.
type Executor struct {
	forwarder RemoteForwarder
	targets   TargetLookup
	pool      PublisherPool
	emitter   Emitter
	dedup     Deduper
	reporter  telemetry.Reporter
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDeduper skips units whose idempotency key already completed.
func WithDeduper(d Deduper) ExecutorOption {
	return func(e *Executor) { e.dedup = d }
}

// WithReporter sets where unit failures are reported.
func WithReporter(r telemetry.Reporter) ExecutorOption {
	return func(e *Executor) { e.reporter = r }
}

// NewExecutor wires the three delivery paths.
func NewExecutor(fwd RemoteForwarder, targets TargetLookup, pool PublisherPool, emitter Emitter, opts ...ExecutorOption) *Executor {
	e := &Executor{
		forwarder: fwd,
		targets:   targets,
		pool:      pool,
		emitter:   emitter,
		reporter:  telemetry.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds the executor as the consumer of topic.
func (e *Executor) Register(r *Router, sub message.Subscriber, topic string) {
	r.AddConsumerHandler("delivery-executor", topic, sub, e.Handle)
}

// Handle executes one message. A nil return acks it.
func (e *Executor) Handle(msg *message.Message) error {
	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}

	unit, err := Decode(msg)
	if err != nil {
		// Retrying cannot fix a malformed unit.
		logging.Ctx(ctx).Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable delivery unit")
		e.reporter.CaptureError(ctx, err, map[string]string{"message_uuid": msg.UUID})
		metrics.RecordExecution(msg.Metadata.Get(MetadataUnitKind), metrics.OutcomeDropped, 0, err)
		return nil
	}
	return e.Execute(ctx, unit)
}

// Execute runs one decoded unit.
func (e *Executor) Execute(ctx context.Context, unit Unit) error {
	kind := string(unit.Kind())
	key := unit.IdempotencyKey()

	if e.dedup != nil {
		seen, err := e.dedup.Seen(ctx, key)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("idempotency_key", key).Msg("dedup lookup failed, executing unit")
		} else if seen {
			logging.Ctx(ctx).Debug().Str("idempotency_key", key).Msg("skipping completed delivery unit")
			metrics.RecordDedupSkip()
			metrics.RecordExecution(kind, metrics.OutcomeSkipped, 0, nil)
			return nil
		}
	}

	start := time.Now()
	err := e.execute(ctx, unit)
	duration := time.Since(start)

	var cfgErr *models.ConfigurationError
	if errors.As(err, &cfgErr) {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("unit_kind", kind).
			Str("idempotency_key", key).
			Msg("delivery unit rejected by configuration")
		e.reporter.CaptureError(ctx, err, map[string]string{"unit_kind": kind, "idempotency_key": key})
		metrics.RecordExecution(kind, metrics.OutcomeDropped, duration, err)
		return nil
	}

	metrics.RecordExecution(kind, "", duration, err)
	if err != nil {
		return err
	}

	if e.dedup != nil {
		if err := e.dedup.Mark(ctx, key); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("idempotency_key", key).Msg("failed to record completed delivery unit")
		}
	}
	return nil
}

func (e *Executor) execute(ctx context.Context, unit Unit) error {
	switch u := unit.(type) {
	case RemoteForwardUnit:
		return e.forward(ctx, &u)
	case PublishUnit:
		return e.publish(ctx, &u)
	case BroadcastUnit:
		return e.broadcast(ctx, &u)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownUnit, unit)
	}
}

func (e *Executor) forward(ctx context.Context, u *RemoteForwardUnit) error {
	// Failures are logged and reported by the forwarder itself.
	_, err := e.forwarder.Forward(ctx, forwarder.Request{
		Kind:            u.EventKind,
		EventID:         u.EventID,
		DestinationID:   u.DestinationID,
		DestinationName: u.DestinationName,
		BaseURL:         u.BaseURL,
		Payload:         u.Payload,
	})
	return err
}

func (e *Executor) publish(ctx context.Context, u *PublishUnit) error {
	target, err := e.targets.GetMQTTTarget(ctx, u.TargetID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return &models.ConfigurationError{Entity: "mqtt_target", ID: u.TargetID, Reason: "target no longer exists"}
	case err != nil:
		return fmt.Errorf("lookup mqtt target %d: %w", u.TargetID, err)
	case !target.Enabled:
		return &models.ConfigurationError{Entity: "mqtt_target", ID: u.TargetID, Reason: "target is disabled"}
	}

	err = e.pool.Get(target).Publish(ctx, u.Queue, u.Data, u.MsgID())
	if err != nil {
		// Drop the connection so the retry dials again.
		if derr := e.pool.Discard(target.ID); derr != nil {
			logging.Ctx(ctx).Debug().Err(derr).Int64("target_id", target.ID).Msg("closing failed publisher")
		}
		logging.Ctx(ctx).Warn().
			Err(err).
			Int64("target_id", target.ID).
			Str("target", target.Name).
			Str("queue", u.Queue).
			Str("event_id", u.EventID).
			Msg("broker publish failed")
		e.reporter.CaptureError(ctx, err, map[string]string{
			"target_id": strconv.FormatInt(target.ID, 10),
			"queue":     u.Queue,
			"event_id":  u.EventID,
		})
		return err
	}

	logging.Ctx(ctx).Debug().
		Int64("target_id", target.ID).
		Str("queue", u.Queue).
		Str("event_id", u.EventID).
		Msg("event published to broker")
	return nil
}

func (e *Executor) broadcast(ctx context.Context, u *BroadcastUnit) error {
	if err := u.Scope.Validate(); err != nil {
		return &models.ConfigurationError{Entity: "broadcast_scope", Reason: err.Error()}
	}
	n := e.emitter.Emit(u.Event, u.Data, u.Scope)
	logging.Ctx(ctx).Debug().
		Str("event", u.Event).
		Str("scope", u.Scope.String()).
		Int("recipients", n).
		Msg("event broadcast")
	return nil
}
