// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package coordinator resolves the destinations of an event and enqueues
// one delivery unit per destination. It never talks to a destination itself.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/queue"
	"github.com/tomtom215/trunkcast/internal/websocket"
)

// Registry is the destination snapshot read on every dispatch.
type Registry interface {
	ListForwarders(ctx context.Context) ([]models.Forwarder, error)
	ListMQTTTargets(ctx context.Context) ([]models.MQTTTarget, error)
}

// Enqueuer accepts delivery units.
type Enqueuer interface {
	Enqueue(ctx context.Context, u queue.Unit) error
}

// Result reports what one Dispatch enqueued.
type Result struct {
	EventID    string
	Forwards   int
	Publishes  int
	Broadcasts int
	Enqueued   int
	Failed     int
	DurationMS int64
}

// Coordinator fans an event out into delivery units.
type Coordinator struct {
	registry Registry
	queue    Enqueuer
	logger   zerolog.Logger
}

// New creates a Coordinator.
func New(registry Registry, q Enqueuer) *Coordinator {
	return &Coordinator{
		registry: registry,
		queue:    q,
		logger:   logging.WithComponent("coordinator"),
	}
}

// Dispatch enqueues one RemoteForward unit per accepting forwarder, one
// Publish unit per MQTT target in scope and exactly one room Broadcast.
//
// An enqueue failure is counted and the remaining units are still attempted;
// the returned error joins every enqueue failure. A registry failure enqueues
// nothing. Calling Dispatch twice enqueues every unit twice.
func (c *Coordinator) Dispatch(ctx context.Context, kind models.EventKind, payload models.Payload, systemID int64) (Result, error) {
	start := time.Now()
	eventID := payload.EventID()
	res := Result{EventID: eventID}

	forwarders, err := c.registry.ListForwarders(ctx)
	if err != nil {
		return res, fmt.Errorf("dispatch %s %s: list forwarders: %w", kind, eventID, err)
	}
	targets, err := c.registry.ListMQTTTargets(ctx)
	if err != nil {
		return res, fmt.Errorf("dispatch %s %s: list mqtt targets: %w", kind, eventID, err)
	}

	units, err := c.resolve(kind, payload, systemID, forwarders, targets)
	if err != nil {
		return res, fmt.Errorf("dispatch %s %s: %w", kind, eventID, err)
	}

	var errs []error
	for _, u := range units {
		switch u.Kind() {
		case queue.KindRemoteForward:
			res.Forwards++
		case queue.KindPublish:
			res.Publishes++
		case queue.KindBroadcast:
			res.Broadcasts++
		}

		if err := c.queue.Enqueue(ctx, u); err != nil {
			res.Failed++
			errs = append(errs, err)
			c.logger.Error().
				Err(err).
				Str("event_id", eventID).
				Str("unit_kind", string(u.Kind())).
				Str("idempotency_key", u.IdempotencyKey()).
				Msg("failed to enqueue delivery unit")
			continue
		}
		res.Enqueued++
	}
	res.DurationMS = time.Since(start).Milliseconds()

	c.logger.Debug().
		Str("event_id", eventID).
		Str("kind", string(kind)).
		Int64("system_id", systemID).
		Int("forwards", res.Forwards).
		Int("publishes", res.Publishes).
		Int("enqueued", res.Enqueued).
		Int("failed", res.Failed).
		Msg("event dispatched")

	return res, errors.Join(errs...)
}

// resolve builds the units for one event from a registry snapshot.
func (c *Coordinator) resolve(kind models.EventKind, payload models.Payload, systemID int64, forwarders []models.Forwarder, targets []models.MQTTTarget) ([]queue.Unit, error) {
	eventID := payload.EventID()
	units := make([]queue.Unit, 0, len(forwarders)+len(targets)+1)

	for i := range forwarders {
		f := &forwarders[i]
		if !f.Accepts(kind, systemID) {
			continue
		}
		units = append(units, queue.RemoteForwardUnit{
			DestinationID:   f.ID,
			DestinationName: f.Name,
			BaseURL:         f.URL,
			EventKind:       kind,
			EventID:         eventID,
			Payload:         payload.ForRecorder(f.Key),
		})
	}

	broadcast, err := queue.NewBroadcastUnit(string(kind), eventID, websocket.ToRoom(websocket.SystemRoom(systemID)), payload)
	if err != nil {
		return nil, err
	}
	units = append(units, broadcast)

	agency, hasAgency := payload.AgencyID()
	var data []byte
	for i := range targets {
		t := &targets[i]
		if !t.InScope(systemID, agency, hasAgency) {
			continue
		}
		if data == nil {
			if data, err = payload.Marshal(); err != nil {
				return nil, fmt.Errorf("encode payload: %w", err)
			}
		}
		units = append(units, queue.PublishUnit{
			TargetID:  t.ID,
			Queue:     t.QueueName(kind),
			EventKind: kind,
			EventID:   eventID,
			Data:      data,
		})
	}

	return units, nil
}

// NotifyMutation tells every real-time client that an entity changed.
func (c *Coordinator) NotifyMutation(ctx context.Context, id, entityType, eventType string) error {
	mutation := models.Mutation{UUID: id, Type: entityType, Event: eventType}
	u, err := queue.NewBroadcastUnit(websocket.MessageTypeMutation, id+":"+eventType, websocket.Global(), mutation)
	if err != nil {
		return err
	}
	if err := c.queue.Enqueue(ctx, u); err != nil {
		return fmt.Errorf("notify %s %s %s: %w", eventType, entityType, id, err)
	}
	return nil
}
