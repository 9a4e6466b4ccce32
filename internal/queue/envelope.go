// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package queue

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// Metadata keys set on every delivery message.
const (
	MetadataUnitKind       = "unit_kind"
	MetadataIdempotencyKey = "idempotency_key"
	MetadataCorrelationID  = "correlation_id"
)

// ErrUnknownUnit is returned by Decode for an envelope of an unknown kind.
var ErrUnknownUnit = errors.New("unknown delivery unit kind")

type envelope struct {
	Kind UnitKind        `json:"kind"`
	Unit json.RawMessage `json:"unit"`
}

// Encode wraps u in an envelope message with a fresh UUID.
func Encode(u Unit) (*message.Message, error) {
	body, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode %s unit: %w", u.Kind(), err)
	}
	data, err := json.Marshal(envelope{Kind: u.Kind(), Unit: body})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataUnitKind, string(u.Kind()))
	msg.Metadata.Set(MetadataIdempotencyKey, u.IdempotencyKey())
	return msg, nil
}

// Decode returns the typed unit carried by msg.
func Decode(msg *message.Message) (Unit, error) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("decode envelope %s: %w", msg.UUID, err)
	}

	switch env.Kind {
	case KindRemoteForward:
		var u RemoteForwardUnit
		return decodeInto(env, &u)
	case KindPublish:
		var u PublishUnit
		return decodeInto(env, &u)
	case KindBroadcast:
		var u BroadcastUnit
		return decodeInto(env, &u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, env.Kind)
	}
}

// decodeInto keeps payload numbers as json.Number so that identifiers beyond
// float64 precision reach peers and brokers unchanged.
func decodeInto[T Unit](env envelope, u *T) (Unit, error) {
	dec := json.NewDecoder(bytes.NewReader(env.Unit))
	dec.UseNumber()
	if err := dec.Decode(u); err != nil {
		return nil, fmt.Errorf("decode %s unit: %w", env.Kind, err)
	}
	return *u, nil
}
