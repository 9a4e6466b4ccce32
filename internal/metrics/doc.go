// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package metrics exposes the Prometheus instruments for Trunkcast.
//
// Instruments are registered on the default registry through promauto and are
// served by promhttp at /metrics. Components call the Record* helpers rather
// than touching the vectors directly.
package metrics
