// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

import "time"

// System is a radio system whose events are ingested and fanned out.
type System struct {
	ID           int64         `json:"id" koanf:"id" validate:"required,min=1"`
	Name         string        `json:"name" koanf:"name"`
	PruneEnabled bool          `json:"prune_enabled" koanf:"prune_enabled"`
	PruneAfter   time.Duration `json:"prune_after" koanf:"prune_after" validate:"min=0"`
}

// Cutoff returns the newest start time that is still eligible for pruning.
func (s System) Cutoff(now time.Time) time.Time {
	return now.Add(-s.PruneAfter)
}

// Recorder maps a recorder key presented by a peer to the local system its
// forwarded events are filed under.
type Recorder struct {
	Key      string `json:"key" koanf:"key" validate:"required"`
	SystemID int64  `json:"system" koanf:"system" validate:"required,min=1"`
}
