// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package websocket is the local broadcast emitter: it pushes events to
connected real-time clients.

A Hub tracks clients and rooms. Every emit is addressed by a Scope:

	hub.Emit("transmission", payload, websocket.ToRoom(websocket.SystemRoom(3)))
	hub.Emit("notice", data, websocket.ToConnection(id))
	hub.EmitMutation(txID, "transmission", models.MutationDelete)

Emits never block. Each client has a buffered send channel drained by its
own write goroutine; a client whose buffer is full is dropped.

Protocol frames are JSON objects {"type", "data", "room"}:

	server -> client  connect  {"id": "<connection id>"}
	client -> server  join     {"type":"join","data":"system:3"}
	client -> server  leave    {"type":"leave","room":"system:3"}
	client -> server  ping     answered with pong
	client -> server  echo     re-emitted to "room" if the sender is a member
	server -> client  mutation {"uuid","type","event"}

RunWithContext serves registrations from the HTTP handler and closes every
client when its context ends, which makes the hub a supervised service.
While it is not running, new connections are refused and closing clients
remove themselves directly.
*/
package websocket
