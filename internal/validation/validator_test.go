// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package validation

import (
	"errors"
	"strings"
	"testing"
)

type peer struct {
	Name string `validate:"required"`
	URL  string `validate:"required,url"`
	Port int    `validate:"min=1,max=65535"`
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&peer{Name: "north", URL: "https://north.example.org", Port: 443}); err != nil {
		t.Errorf("ValidateStruct() error = %v, want nil", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&peer{URL: "not a url", Port: 70000})
	if err == nil {
		t.Fatal("ValidateStruct() error = nil, want error")
	}

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("len(Fields) = %d, want 3: %v", len(verr.Fields), verr)
	}

	msg := err.Error()
	for _, want := range []string{"peer.Name is required", "peer.URL must be a valid URL", "peer.Port must be at most 65535"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}
