// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package coordinator

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/queue"
	"github.com/tomtom215/trunkcast/internal/websocket"
)

//nolint:gochecknoinits // keep coordinator logs out of test output
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type stubRegistry struct {
	forwarders []models.Forwarder
	targets    []models.MQTTTarget
	err        error
}

func (s *stubRegistry) ListForwarders(context.Context) ([]models.Forwarder, error) {
	return s.forwarders, s.err
}

func (s *stubRegistry) ListMQTTTargets(context.Context) ([]models.MQTTTarget, error) {
	return s.targets, s.err
}

type recordingQueue struct {
	units  []queue.Unit
	failOn func(queue.Unit) bool
}

func (q *recordingQueue) Enqueue(_ context.Context, u queue.Unit) error {
	if q.failOn != nil && q.failOn(u) {
		return errors.New("queue unavailable")
	}
	q.units = append(q.units, u)
	return nil
}

func (q *recordingQueue) ofKind(kind queue.UnitKind) []queue.Unit {
	var out []queue.Unit
	for _, u := range q.units {
		if u.Kind() == kind {
			out = append(out, u)
		}
	}
	return out
}

func testPayload() models.Payload {
	return models.Payload{"id": "tx-42", "system": int64(3), "talkgroup": 100, "agency": int64(9)}
}

func registry() *stubRegistry {
	return &stubRegistry{
		forwarders: []models.Forwarder{
			{ID: 1, Name: "north", URL: "http://north", Key: "key-n", Enabled: true, ForwardIncidents: true, Systems: []int64{3}},
			{ID: 2, Name: "south", URL: "http://south", Key: "key-s", Enabled: true, ForwardIncidents: false, Systems: []int64{3}},
			{ID: 3, Name: "disabled", URL: "http://off", Key: "key-o", Enabled: false, Systems: []int64{3}},
			{ID: 4, Name: "elsewhere", URL: "http://else", Key: "key-e", Enabled: true, Systems: []int64{8}},
		},
		targets: []models.MQTTTarget{
			{ID: 10, Name: "by-system", Host: "h", Port: 4222, Enabled: true, Systems: []int64{3}},
			{ID: 11, Name: "by-agency", Host: "h", Port: 4222, Enabled: true, Agencies: []int64{9}, TopicPrefix: "county"},
			{ID: 12, Name: "disabled", Host: "h", Port: 4222, Enabled: false, Systems: []int64{3}},
			{ID: 13, Name: "other", Host: "h", Port: 4222, Enabled: true, Systems: []int64{8}},
		},
	}
}

func forwardIDs(units []queue.Unit) []int64 {
	var ids []int64
	for _, u := range units {
		ids = append(ids, u.(queue.RemoteForwardUnit).DestinationID)
	}
	return ids
}

func TestDispatchTransmission(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	c := New(registry(), q)

	res, err := c.Dispatch(context.Background(), models.EventKindTransmission, testPayload(), 3)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.Forwards != 2 || res.Publishes != 2 || res.Broadcasts != 1 || res.Enqueued != 5 || res.Failed != 0 {
		t.Errorf("Result = %+v", res)
	}

	fwd := q.ofKind(queue.KindRemoteForward)
	if ids := forwardIDs(fwd); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("forward destinations = %v, want [1 2]", ids)
	}
	unit := fwd[0].(queue.RemoteForwardUnit)
	if _, ok := unit.Payload["system"]; ok {
		t.Error("forwarded payload still carries system")
	}
	if unit.Payload["recorder"] != "key-n" {
		t.Errorf("recorder = %v, want key-n", unit.Payload["recorder"])
	}
	if unit.EventID != "tx-42" || unit.BaseURL != "http://north" {
		t.Errorf("unit = %+v", unit)
	}

	pubs := q.ofKind(queue.KindPublish)
	if len(pubs) != 2 {
		t.Fatalf("publish units = %d, want 2", len(pubs))
	}
	queues := map[int64]string{}
	for _, u := range pubs {
		pu := u.(queue.PublishUnit)
		queues[pu.TargetID] = pu.Queue
	}
	if queues[10] != "trunkcast.transmission" || queues[11] != "county.transmission" {
		t.Errorf("publish queues = %v", queues)
	}

	bc := q.ofKind(queue.KindBroadcast)
	if len(bc) != 1 {
		t.Fatalf("broadcast units = %d, want 1", len(bc))
	}
	b := bc[0].(queue.BroadcastUnit)
	if b.Event != "transmission" || b.Scope != websocket.ToRoom("system:3") {
		t.Errorf("broadcast = %+v", b)
	}
	var data map[string]any
	if err := json.Unmarshal(b.Data, &data); err != nil {
		t.Fatal(err)
	}
	if _, ok := data["system"]; !ok {
		t.Error("broadcast data lost the system field")
	}
}

func TestDispatchIncidentRespectsForwardIncidents(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	c := New(registry(), q)

	if _, err := c.Dispatch(context.Background(), models.EventKindIncident, testPayload(), 3); err != nil {
		t.Fatal(err)
	}
	if ids := forwardIDs(q.ofKind(queue.KindRemoteForward)); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("incident forward destinations = %v, want [1]", ids)
	}
}

func TestDispatchNoDestinations(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	c := New(&stubRegistry{}, q)

	res, err := c.Dispatch(context.Background(), models.EventKindTransmission, testPayload(), 3)
	if err != nil {
		t.Fatal(err)
	}
	// The room broadcast is always enqueued.
	if res.Enqueued != 1 || len(q.ofKind(queue.KindBroadcast)) != 1 {
		t.Errorf("Result = %+v, want only the broadcast", res)
	}
}

func TestDispatchEnqueueFailureContinues(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{failOn: func(u queue.Unit) bool {
		fu, ok := u.(queue.RemoteForwardUnit)
		return ok && fu.DestinationID == 1
	}}
	c := New(registry(), q)

	res, err := c.Dispatch(context.Background(), models.EventKindTransmission, testPayload(), 3)
	if err == nil {
		t.Fatal("Dispatch() error = nil, want enqueue failure")
	}
	if res.Failed != 1 || res.Enqueued != 4 {
		t.Errorf("Result = %+v, want 1 failed and 4 enqueued", res)
	}
	if ids := forwardIDs(q.ofKind(queue.KindRemoteForward)); len(ids) != 1 || ids[0] != 2 {
		t.Errorf("sibling forwards = %v, want [2]", ids)
	}
}

func TestDispatchRegistryFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	q := &recordingQueue{}
	c := New(&stubRegistry{err: boom}, q)

	_, err := c.Dispatch(context.Background(), models.EventKindTransmission, testPayload(), 3)
	if !errors.Is(err, boom) {
		t.Errorf("Dispatch() error = %v, want %v", err, boom)
	}
	if len(q.units) != 0 {
		t.Errorf("enqueued %d units on registry failure, want 0", len(q.units))
	}
}

func TestDispatchTwiceDuplicates(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	c := New(registry(), q)
	ctx := context.Background()

	_, _ = c.Dispatch(ctx, models.EventKindTransmission, testPayload(), 3)
	_, _ = c.Dispatch(ctx, models.EventKindTransmission, testPayload(), 3)

	if got := len(q.units); got != 10 {
		t.Errorf("units after two dispatches = %d, want 10", got)
	}
}

func TestNotifyMutation(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	c := New(&stubRegistry{}, q)

	if err := c.NotifyMutation(context.Background(), "tx-1", "transmission", models.MutationDelete); err != nil {
		t.Fatalf("NotifyMutation() error = %v", err)
	}
	if len(q.units) != 1 {
		t.Fatalf("units = %d, want 1", len(q.units))
	}
	b := q.units[0].(queue.BroadcastUnit)
	if b.Event != websocket.MessageTypeMutation || b.Scope != websocket.Global() {
		t.Errorf("unit = %+v", b)
	}
	var m models.Mutation
	if err := json.Unmarshal(b.Data, &m); err != nil {
		t.Fatal(err)
	}
	if m != (models.Mutation{UUID: "tx-1", Type: "transmission", Event: models.MutationDelete}) {
		t.Errorf("mutation = %+v", m)
	}
}
