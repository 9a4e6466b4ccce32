// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

// Incident is a dispatch incident tied to a system. Incidents are forwarded
// but never pruned.
type Incident struct {
	ID       string  `json:"id"`
	SystemID int64   `json:"system"`
	Payload  Payload `json:"-"`
}

// IncidentFromPayload builds an Incident, generating an id when absent.
func IncidentFromPayload(p Payload, systemID int64) *Incident {
	return &Incident{ID: ensureID(p), SystemID: systemID, Payload: p}
}
