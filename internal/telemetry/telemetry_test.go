// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/trunkcast/internal/logging"
)

func TestNewWithoutDSN(t *testing.T) {
	t.Parallel()

	r, flush, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer flush()
	if _, ok := r.(*LogReporter); !ok {
		t.Errorf("New() = %T, want *LogReporter", r)
	}
}

func TestNewWithInvalidDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := New(Config{DSN: "not a dsn"}); err == nil {
		t.Error("New() with invalid DSN error = nil, want error")
	}
}

func TestLogReporterWritesTags(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := &LogReporter{logger: logging.NewTestLogger(&buf)}
	ctx := logging.ContextWithCorrelationID(context.Background(), "abc12345")

	r.CaptureError(ctx, errors.New("peer unreachable"), map[string]string{"destination": "peer-a"})
	r.CaptureError(ctx, nil, nil)

	out := buf.String()
	for _, want := range []string{`"error":"peer unreachable"`, `"destination":"peer-a"`, `"correlation_id":"abc12345"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %s", out, want)
		}
	}
	if n := strings.Count(out, "\n"); n != 1 {
		t.Errorf("log lines = %d, want 1 (nil error is ignored)", n)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.CaptureError(context.Background(), errors.New("one"), map[string]string{"k": "v"})
	r.CaptureError(context.Background(), errors.New("two"), nil)

	got := r.Errors()
	if len(got) != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", len(got))
	}
	if got[0].Err.Error() != "one" || got[0].Tags["k"] != "v" {
		t.Errorf("Errors()[0] = %+v", got[0])
	}
}
