// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/trunkcast/internal/models"
)

func TestPoolGet(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultConfig(""))
	defer pool.Close()

	target := &models.MQTTTarget{ID: 1, Name: "board", Host: "127.0.0.1", Port: 4222, Enabled: true}

	first := pool.Get(target)
	if again := pool.Get(target); again != first {
		t.Error("Get() returned a new Publisher for an unchanged target")
	}
	if first.cfg.URL != "nats://127.0.0.1:4222" {
		t.Errorf("publisher URL = %q, want nats://127.0.0.1:4222", first.cfg.URL)
	}

	moved := *target
	moved.Port = 4223
	replaced := pool.Get(&moved)
	if replaced == first {
		t.Error("Get() reused the Publisher after the target port changed")
	}
	if err := first.Publish(context.Background(), "q", nil, ""); !errors.Is(err, ErrClosed) {
		t.Errorf("replaced Publisher error = %v, want ErrClosed", err)
	}

	other := &models.MQTTTarget{ID: 2, Name: "other", Host: "10.0.0.2", Port: 4222, Enabled: true}
	pool.Get(other)
	if pool.Len() != 2 {
		t.Errorf("Len() = %d, want 2", pool.Len())
	}
}

func TestPoolDiscardAndClose(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultConfig(""))
	target := &models.MQTTTarget{ID: 7, Name: "t", Host: "127.0.0.1", Port: 4222, Enabled: true}

	first := pool.Get(target)
	if err := pool.Discard(target.ID); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if pool.Get(target) == first {
		t.Error("Get() after Discard returned the discarded Publisher")
	}
	if err := pool.Discard(99); err != nil {
		t.Errorf("Discard(unknown) error = %v", err)
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if pool.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", pool.Len())
	}
	late := pool.Get(target)
	if err := late.Publish(context.Background(), "q", nil, ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close returned usable Publisher, err = %v", err)
	}
}
