// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseEventKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    EventKind
		wantErr bool
	}{
		{"transmission", EventKindTransmission, false},
		{"Incident", EventKindIncident, false},
		{" incident ", EventKindIncident, false},
		{"call", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseEventKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEventKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEventKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPayload_EventID(t *testing.T) {
	t.Parallel()

	if got := (Payload{"id": "abc", "uuid": "def"}).EventID(); got != "abc" {
		t.Errorf("EventID() = %q, want abc", got)
	}
	if got := (Payload{"uuid": "def"}).EventID(); got != "def" {
		t.Errorf("EventID() = %q, want def", got)
	}
	if got := (Payload{"id": float64(42)}).EventID(); got != "42" {
		t.Errorf("EventID() = %q, want 42", got)
	}
	if got := (Payload{}).EventID(); got != "" {
		t.Errorf("EventID() = %q, want empty", got)
	}
}

func TestPayload_ForRecorder(t *testing.T) {
	t.Parallel()

	orig := Payload{"id": "t-1", "system": int64(7), "talkgroup": int64(100)}
	out := orig.ForRecorder("peer-key")

	if _, ok := out["system"]; ok {
		t.Error("ForRecorder() kept the system key")
	}
	if out["recorder"] != "peer-key" {
		t.Errorf("recorder = %v, want peer-key", out["recorder"])
	}
	if out["talkgroup"] != int64(100) {
		t.Errorf("talkgroup = %v, want 100", out["talkgroup"])
	}
	if _, ok := orig["system"]; !ok {
		t.Error("ForRecorder() mutated the original payload")
	}
	if _, ok := orig["recorder"]; ok {
		t.Error("ForRecorder() added recorder to the original payload")
	}
}

func TestParsePayload(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload([]byte(`{"id":"x","system":9007199254740993,"agency":"12"}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	sys, ok := p.SystemID()
	if !ok || sys != 9007199254740993 {
		t.Errorf("SystemID() = %d, %v; want 9007199254740993, true", sys, ok)
	}
	agency, ok := p.AgencyID()
	if !ok || agency != 12 {
		t.Errorf("AgencyID() = %d, %v; want 12, true", agency, ok)
	}

	if _, err := ParsePayload([]byte(`[1,2]`)); err == nil {
		t.Error("ParsePayload(array) should fail")
	}
	if _, err := ParsePayload([]byte(`null`)); err == nil {
		t.Error("ParsePayload(null) should fail")
	}
}

func TestForwarder_Accepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fwd  Forwarder
		kind EventKind
		sys  int64
		want bool
	}{
		{"enabled in scope", Forwarder{Enabled: true, Systems: []int64{1, 2}}, EventKindTransmission, 2, true},
		{"disabled in scope", Forwarder{Enabled: false, Systems: []int64{1}}, EventKindTransmission, 1, false},
		{"out of scope", Forwarder{Enabled: true, Systems: []int64{1}}, EventKindTransmission, 3, false},
		{"incident without flag", Forwarder{Enabled: true, Systems: []int64{1}}, EventKindIncident, 1, false},
		{"incident with flag", Forwarder{Enabled: true, ForwardIncidents: true, Systems: []int64{1}}, EventKindIncident, 1, true},
		{"disabled incident with flag", Forwarder{ForwardIncidents: true, Systems: []int64{1}}, EventKindIncident, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fwd.Accepts(tt.kind, tt.sys); got != tt.want {
				t.Errorf("Accepts(%s, %d) = %v, want %v", tt.kind, tt.sys, got, tt.want)
			}
		})
	}
}

func TestMQTTTarget_Scope(t *testing.T) {
	t.Parallel()

	target := MQTTTarget{Enabled: true, Systems: []int64{1}, Agencies: []int64{50}}

	if !target.InScope(1, 0, false) {
		t.Error("InScope(system 1) = false, want true")
	}
	if target.InScope(2, 0, false) {
		t.Error("InScope(system 2) = true, want false")
	}
	if !target.InScope(2, 50, true) {
		t.Error("InScope(agency 50) = false, want true")
	}

	target.Enabled = false
	if target.InScope(1, 0, false) {
		t.Error("disabled target reported in scope")
	}
}

func TestMQTTTarget_QueueNameAndURL(t *testing.T) {
	t.Parallel()

	target := MQTTTarget{Host: "10.0.0.5", Port: 4222}
	if got := target.QueueName(EventKindTransmission); got != "trunkcast.transmission" {
		t.Errorf("QueueName() = %q, want trunkcast.transmission", got)
	}
	target.TopicPrefix = "county"
	if got := target.QueueName(EventKindIncident); got != "county.incident" {
		t.Errorf("QueueName() = %q, want county.incident", got)
	}
	if got := target.URL(); got != "nats://10.0.0.5:4222" {
		t.Errorf("URL() = %q, want nats://10.0.0.5:4222", got)
	}
}

func TestTransmissionFromPayload(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload([]byte(`{
		"system": 3,
		"start_time": "2026-01-02T03:04:05Z",
		"talkgroup": 1201,
		"units": [501, 502],
		"frequencies": [{"freq": 851012500, "error_count": 2, "spike_count": 1}]
	}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tx, err := TransmissionFromPayload(p, 3, now)
	if err != nil {
		t.Fatalf("TransmissionFromPayload() error = %v", err)
	}

	if tx.ID == "" || p.EventID() != tx.ID {
		t.Errorf("generated id %q not written back to payload (%q)", tx.ID, p.EventID())
	}
	if want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC); !tx.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", tx.StartTime, want)
	}
	if tx.Talkgroup != 1201 {
		t.Errorf("Talkgroup = %d, want 1201", tx.Talkgroup)
	}
	if len(tx.Units) != 2 || tx.Units[0] != 501 {
		t.Errorf("Units = %v, want [501 502]", tx.Units)
	}
	if len(tx.Frequencies) != 1 || tx.Frequencies[0].Freq != 851012500 || tx.Frequencies[0].ErrorCount != 2 {
		t.Errorf("Frequencies = %+v", tx.Frequencies)
	}
}

func TestTransmissionFromPayload_DefaultsStartTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tx, err := TransmissionFromPayload(Payload{"id": "t-9"}, 1, now)
	if err != nil {
		t.Fatalf("TransmissionFromPayload() error = %v", err)
	}
	if !tx.StartTime.Equal(now) {
		t.Errorf("StartTime = %v, want %v", tx.StartTime, now)
	}

	if _, err := TransmissionFromPayload(Payload{"start_time": "yesterday"}, 1, now); err == nil {
		t.Error("invalid start_time should fail")
	}
}

func TestSystem_Cutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	sys := System{PruneAfter: 30 * 24 * time.Hour}
	if got, want := sys.Cutoff(now), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Cutoff() = %v, want %v", got, want)
	}
}

func TestConfigurationError(t *testing.T) {
	t.Parallel()

	var err error = &ConfigurationError{Entity: "mqtt target", ID: 4, Reason: "disabled"}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("errors.Is(ConfigurationError, ErrConfiguration) = false")
	}
	if got := err.Error(); got != "mqtt target 4: disabled" {
		t.Errorf("Error() = %q", got)
	}
}
