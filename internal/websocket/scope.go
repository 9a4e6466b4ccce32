// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package websocket

import "fmt"

// ScopeKind selects the recipients of an emit.
type ScopeKind string

const (
	ScopeGlobal     ScopeKind = "global"
	ScopeRoom       ScopeKind = "room"
	ScopeConnection ScopeKind = "connection"
)

// Scope addresses an emit to every client, one room, or one connection.
// It serializes as {"kind":..., "target":...} so it can travel inside a
// delivery unit.
type Scope struct {
	Kind   ScopeKind `json:"kind"`
	Target string    `json:"target,omitempty"`
}

// Global addresses every connected client.
func Global() Scope { return Scope{Kind: ScopeGlobal} }

// ToRoom addresses the current members of room.
func ToRoom(room string) Scope { return Scope{Kind: ScopeRoom, Target: room} }

// ToConnection addresses a single connection.
func ToConnection(id string) Scope { return Scope{Kind: ScopeConnection, Target: id} }

// SystemRoom is the room that receives a system's events.
func SystemRoom(systemID int64) string {
	return fmt.Sprintf("system:%d", systemID)
}

func (s Scope) String() string {
	if s.Target == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ":" + s.Target
}

// Validate rejects unknown kinds and missing targets.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeGlobal:
		return nil
	case ScopeRoom, ScopeConnection:
		if s.Target == "" {
			return fmt.Errorf("%s scope requires a target", s.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown scope kind %q", s.Kind)
	}
}
