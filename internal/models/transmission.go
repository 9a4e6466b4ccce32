// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Transmission is one recorded radio call. Units and Frequencies are stored
// as child rows and must be removed before the transmission itself.
type Transmission struct {
	ID          string      `json:"id"`
	SystemID    int64       `json:"system"`
	StartTime   time.Time   `json:"start_time"`
	Talkgroup   int64       `json:"talkgroup"`
	Units       []int64     `json:"units,omitempty"`
	Frequencies []Frequency `json:"frequencies,omitempty"`
	Payload     Payload     `json:"-"`
}

// Frequency is a per-transmission frequency record.
type Frequency struct {
	Freq       int64   `json:"freq"`
	Position   float64 `json:"pos"`
	Length     float64 `json:"len"`
	ErrorCount int     `json:"error_count"`
	SpikeCount int     `json:"spike_count"`
}

// TransmissionFromPayload extracts the stored columns of a transmission from
// an ingested payload. A missing id is generated and written back into the
// payload so downstream destinations see the same identity.
func TransmissionFromPayload(p Payload, systemID int64, now time.Time) (*Transmission, error) {
	t := &Transmission{
		ID:        ensureID(p),
		SystemID:  systemID,
		StartTime: now.UTC(),
		Payload:   p,
	}

	if v, ok := p["start_time"]; ok && v != nil {
		start, err := parseTime(v)
		if err != nil {
			return nil, fmt.Errorf("transmission %s: start_time: %w", t.ID, err)
		}
		t.StartTime = start
	}
	if tg, ok := int64Field(p, "talkgroup"); ok {
		t.Talkgroup = tg
	}

	if raw, ok := p["units"].([]any); ok {
		for _, u := range raw {
			id, ok := int64Field(Payload{"u": u}, "u")
			if !ok {
				return nil, fmt.Errorf("transmission %s: invalid unit %v", t.ID, u)
			}
			t.Units = append(t.Units, id)
		}
	}

	if raw, ok := p["frequencies"]; ok && raw != nil {
		// Re-encode the loosely typed list into the typed form.
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("transmission %s: frequencies: %w", t.ID, err)
		}
		if err := json.Unmarshal(data, &t.Frequencies); err != nil {
			return nil, fmt.Errorf("transmission %s: frequencies: %w", t.ID, err)
		}
	}

	return t, nil
}

func ensureID(p Payload) string {
	id := p.EventID()
	if id == "" {
		id = uuid.New().String()
		p[PayloadKeyID] = id
	}
	return id
}

// parseTime accepts RFC3339 strings or unix seconds.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		if secs, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.UTC(), nil
	default:
		secs, ok := int64Field(Payload{"t": v}, "t")
		if !ok {
			return time.Time{}, fmt.Errorf("unsupported value %v", v)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
}
