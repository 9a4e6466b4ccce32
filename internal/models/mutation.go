// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

// Mutation event types.
const (
	MutationCreate = "create"
	MutationUpdate = "update"
	MutationDelete = "delete"
)

// Mutation is the lightweight notice pushed to real-time clients when a
// collection changes.
type Mutation struct {
	UUID  string `json:"uuid"`
	Type  string `json:"type"`
	Event string `json:"event"`
}
