// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package pruner

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/telemetry"
)

//nolint:gochecknoinits // keep pruner logs out of test output
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

const day = 24 * time.Hour

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type storedTx struct {
	systemID int64
	start    time.Time
}

type memStore struct {
	mu         sync.Mutex
	systems    []models.System
	txs        map[string]storedTx
	listErr    map[int64]error
	deleteErr  map[string]error
	systemsErr error
}

func newMemStore(systems ...models.System) *memStore {
	return &memStore{systems: systems, txs: map[string]storedTx{}, listErr: map[int64]error{}, deleteErr: map[string]error{}}
}

func (m *memStore) add(id string, systemID int64, age time.Duration) {
	m.txs[id] = storedTx{systemID: systemID, start: testNow.Add(-age)}
}

func (m *memStore) ListSystems(context.Context) ([]models.System, error) {
	return m.systems, m.systemsErr
}

func (m *memStore) ListExpiredTransmissions(_ context.Context, systemID int64, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr[systemID]; err != nil {
		return nil, err
	}
	var ids []string
	for id, tx := range m.txs {
		if tx.systemID == systemID && !tx.start.After(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) DeleteTransmission(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	delete(m.txs, id)
	return nil
}

func (m *memStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.txs[id]
	return ok
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *recordingNotifier) NotifyMutation(_ context.Context, id, entityType, eventType string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if entityType == "transmission" && eventType == models.MutationDelete {
		n.ids = append(n.ids, id)
	}
	return nil
}

func clock() func() time.Time { return func() time.Time { return testNow } }

func TestPruneAllThirtyDayPolicy(t *testing.T) {
	t.Parallel()

	store := newMemStore(models.System{ID: 1, PruneEnabled: true, PruneAfter: 30 * day})
	store.add("old", 1, 31*day)
	store.add("young", 1, 29*day)

	sum := New(store, WithClock(clock())).PruneAll(context.Background())

	if store.has("old") {
		t.Error("31 day old transmission was kept")
	}
	if !store.has("young") {
		t.Error("29 day old transmission was deleted")
	}
	if sum.SystemsScanned != 1 || sum.TransmissionsDeleted != 1 || sum.Failures != 0 {
		t.Errorf("Summary = %+v", sum)
	}
}

func TestPruneAllDisabledSystemUntouched(t *testing.T) {
	t.Parallel()

	store := newMemStore(models.System{ID: 1, PruneEnabled: false, PruneAfter: day})
	store.add("ancient", 1, 3650*day)

	sum := New(store, WithClock(clock())).PruneAll(context.Background())

	if !store.has("ancient") {
		t.Error("transmission of a system with pruning disabled was deleted")
	}
	if sum.SystemsScanned != 0 {
		t.Errorf("SystemsScanned = %d, want 0", sum.SystemsScanned)
	}
}

func TestPruneAllSkipsSystemWithoutRetention(t *testing.T) {
	t.Parallel()

	store := newMemStore(
		models.System{ID: 1, PruneEnabled: true},
		models.System{ID: 2, PruneEnabled: true, PruneAfter: -day},
		models.System{ID: 3, PruneEnabled: true, PruneAfter: day},
	)
	store.add("fresh", 1, 0)
	store.add("hour", 1, time.Hour)
	store.add("negative", 2, 2*day)
	store.add("expired", 3, 2*day)

	rec := &telemetry.Recorder{}
	sum := New(store, WithClock(clock()), WithReporter(rec)).PruneAll(context.Background())

	for _, id := range []string{"fresh", "hour", "negative"} {
		if !store.has(id) {
			t.Errorf("transmission %q of a misconfigured system was deleted", id)
		}
	}
	if store.has("expired") {
		t.Error("valid system was not pruned")
	}
	if sum.SystemsScanned != 1 || sum.TransmissionsDeleted != 1 || sum.Failures != 2 {
		t.Errorf("Summary = %+v, want 1 scanned, 1 deleted, 2 failures", sum)
	}

	var cerr *models.ConfigurationError
	if !errors.As(sum.Err(), &cerr) || cerr.ID != 1 {
		t.Errorf("Err() = %v, want ConfigurationError for system 1", sum.Err())
	}
	if !errors.Is(sum.Err(), models.ErrConfiguration) {
		t.Errorf("Err() = %v, want ErrConfiguration", sum.Err())
	}
	if got := len(rec.Errors()); got != 2 {
		t.Errorf("reported errors = %d, want 2", got)
	}
}

func TestPruneAllIsolatesSystemFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore(
		models.System{ID: 1, PruneEnabled: true, PruneAfter: day},
		models.System{ID: 2, PruneEnabled: true, PruneAfter: day},
		models.System{ID: 3, PruneEnabled: true, PruneAfter: day},
	)
	store.add("a", 1, 2*day)
	store.add("b", 2, 2*day)
	store.add("c", 3, 2*day)
	store.listErr[1] = errors.New("query failed")
	store.deleteErr["b"] = errors.New("transaction conflict")

	rec := &telemetry.Recorder{}
	sum := New(store, WithClock(clock()), WithReporter(rec)).PruneAll(context.Background())

	if store.has("c") {
		t.Error("system 3 was not pruned after earlier failures")
	}
	if sum.Failures != 2 || sum.TransmissionsDeleted != 1 || sum.SystemsScanned != 3 {
		t.Errorf("Summary = %+v", sum)
	}

	var perr *PruneError
	if !errors.As(sum.Err(), &perr) || !errors.Is(sum.Err(), ErrPruneFailed) {
		t.Fatalf("Summary.Err() = %v, want PruneError", sum.Err())
	}
	if len(rec.Errors()) != 2 {
		t.Errorf("reported %d errors, want 2", len(rec.Errors()))
	}
	if rec.Errors()[0].Tags["system_id"] != "1" {
		t.Errorf("first report tags = %v", rec.Errors()[0].Tags)
	}
}

func TestPruneAllListSystemsFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.systemsErr = errors.New("db down")

	sum := New(store).PruneAll(context.Background())
	if sum.Failures != 1 || sum.Err() == nil {
		t.Errorf("Summary = %+v, want one failure", sum)
	}
}

func TestPruneAllNotifiesDeletes(t *testing.T) {
	t.Parallel()

	store := newMemStore(models.System{ID: 1, PruneEnabled: true, PruneAfter: day})
	store.add("x", 1, 2*day)
	store.add("y", 1, 3*day)
	store.add("z", 1, time.Hour)

	n := &recordingNotifier{}
	New(store, WithClock(clock()), WithNotifier(n)).PruneAll(context.Background())

	sort.Strings(n.ids)
	if len(n.ids) != 2 || n.ids[0] != "x" || n.ids[1] != "y" {
		t.Errorf("notified = %v, want [x y]", n.ids)
	}
}

func TestPruneErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := error(&PruneError{SystemID: 4, Err: cause})
	if !errors.Is(err, ErrPruneFailed) || !errors.Is(err, cause) {
		t.Errorf("errors.Is failed for %v", err)
	}
	if err.Error() != "prune system 4: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
