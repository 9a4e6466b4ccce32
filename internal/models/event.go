// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// EventKind identifies the type of event flowing through the fan-out pipeline.
type EventKind string

const (
	EventKindTransmission EventKind = "transmission"
	EventKindIncident     EventKind = "incident"
)

// ParseEventKind converts a URL path segment or metadata value into an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EventKindTransmission, EventKindIncident:
		return k, nil
	default:
		return "", fmt.Errorf("unknown event kind %q", s)
	}
}

// Payload keys with meaning to the pipeline.
const (
	PayloadKeyID       = "id"
	PayloadKeyUUID     = "uuid"
	PayloadKeySystem   = "system"
	PayloadKeyRecorder = "recorder"
	PayloadKeyAgency   = "agency"
)

// Payload is an event body as a JSON object. The pipeline only inspects a few
// well-known keys and passes everything else through untouched.
type Payload map[string]any

// EventID returns the event identity from "id", falling back to "uuid".
func (p Payload) EventID() string {
	for _, key := range []string{PayloadKeyID, PayloadKeyUUID} {
		if v, ok := p[key]; ok && v != nil {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// SystemID returns the owning system from the "system" key.
func (p Payload) SystemID() (int64, bool) {
	return int64Field(p, PayloadKeySystem)
}

// AgencyID returns the agency from the "agency" key, if present.
func (p Payload) AgencyID() (int64, bool) {
	return int64Field(p, PayloadKeyAgency)
}

// Clone returns a shallow copy. Nested values are shared.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ForRecorder returns the copy sent to a peer: the local "system" identity is
// removed and "recorder" carries the peer's authentication key instead.
func (p Payload) ForRecorder(key string) Payload {
	out := p.Clone()
	delete(out, PayloadKeySystem)
	out[PayloadKeyRecorder] = key
	return out
}

// Marshal encodes the payload as JSON.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// ParsePayload decodes a JSON object. Numbers are kept as json.Number so that
// large identifiers survive the round trip.
func ParsePayload(data []byte) (Payload, error) {
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("decode payload: not a JSON object")
	}
	return p, nil
}

func int64Field(p Payload, key string) (int64, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return fmt.Sprint(v)
}
