// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound is returned by registry lookups for unknown ids and keys.
	ErrNotFound = errors.New("not found")
)

// ConfigurationError reports a destination or policy that is missing,
// disabled or malformed at the time it is referenced.
type ConfigurationError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
