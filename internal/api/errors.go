// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package api

import "errors"

var (
	// ErrMissingSystem is returned when an ingested payload has no "system".
	ErrMissingSystem = errors.New("payload has no system")

	// ErrMissingRecorder is returned when a peer payload has no "recorder".
	ErrMissingRecorder = errors.New("payload has no recorder")
)
