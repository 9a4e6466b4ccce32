// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package queue

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/websocket"
)

// UnitKind names a delivery unit variant on the wire.
type UnitKind string

const (
	KindRemoteForward UnitKind = "remote_forward"
	KindPublish       UnitKind = "publish"
	KindBroadcast     UnitKind = "broadcast"
)

// Unit is one independently retried delivery of one event to one destination.
// The set of variants is closed: RemoteForwardUnit, PublishUnit and
// BroadcastUnit.
type Unit interface {
	Kind() UnitKind
	// IdempotencyKey identifies the (kind, event, destination) triple.
	IdempotencyKey() string

	isUnit()
}

// RemoteForwardUnit posts an event to a peer instance.
type RemoteForwardUnit struct {
	DestinationID   int64            `json:"destination_id"`
	DestinationName string           `json:"destination_name"`
	BaseURL         string           `json:"base_url"`
	EventKind       models.EventKind `json:"event_kind"`
	EventID         string           `json:"event_id"`
	Payload         models.Payload   `json:"payload"`
}

func (RemoteForwardUnit) Kind() UnitKind { return KindRemoteForward }

func (u RemoteForwardUnit) IdempotencyKey() string {
	return fmt.Sprintf("%s:%s:%s:%d", KindRemoteForward, u.EventKind, u.EventID, u.DestinationID)
}

func (RemoteForwardUnit) isUnit() {}

// PublishUnit appends an event to a durable broker queue of an MQTT target.
type PublishUnit struct {
	TargetID  int64            `json:"target_id"`
	Queue     string           `json:"queue"`
	EventKind models.EventKind `json:"event_kind"`
	EventID   string           `json:"event_id"`
	Data      []byte           `json:"data"`
}

func (PublishUnit) Kind() UnitKind { return KindPublish }

func (u PublishUnit) IdempotencyKey() string {
	return fmt.Sprintf("%s:%s:%s:%d", KindPublish, u.Queue, u.EventID, u.TargetID)
}

// MsgID is the broker message id, stable across retries of the same unit.
func (u PublishUnit) MsgID() string {
	return u.EventID + ":" + u.Queue
}

func (PublishUnit) isUnit() {}

// BroadcastUnit emits an event to real-time clients.
type BroadcastUnit struct {
	Event   string          `json:"event"`
	EventID string          `json:"event_id"`
	Scope   websocket.Scope `json:"scope"`
	Data    json.RawMessage `json:"data"`
}

func (BroadcastUnit) Kind() UnitKind { return KindBroadcast }

func (u BroadcastUnit) IdempotencyKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", KindBroadcast, u.Event, u.EventID, u.Scope)
}

func (BroadcastUnit) isUnit() {}

// NewBroadcastUnit encodes data once so the unit carries it verbatim.
func NewBroadcastUnit(event, eventID string, scope websocket.Scope, data any) (BroadcastUnit, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return BroadcastUnit{}, fmt.Errorf("encode broadcast %s: %w", event, err)
	}
	return BroadcastUnit{Event: event, EventID: eventID, Scope: scope, Data: raw}, nil
}
