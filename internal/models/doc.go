// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package models defines the data structures shared across Trunkcast.

Key Components:

  - Payload: an event body as received from a recorder, kept as a generic
    JSON object so unknown fields survive forwarding
  - Transmission and Frequency: a call recorded on a talkgroup, with the
    unit ids and frequency segments extracted from the payload
  - Incident: a dispatch incident keyed by its CAD id
  - System, Recorder, Forwarder, MQTTTarget: the registry
  - Mutation: an entity change pushed to WebSocket clients

Event kinds are "transmission" and "incident":

	kind, err := models.ParseEventKind("transmission")
	payload, err := models.ParsePayload(body)
	t, err := models.TransmissionFromPayload(payload, systemID, time.Now())

Lookups that find nothing return errors wrapping ErrNotFound.
*/
package models
