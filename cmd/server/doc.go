// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

// Package main is the entry point for the Trunkcast server.
//
// Trunkcast receives transmission and incident events from trunked radio
// recorders, stores them in DuckDB and fans each event out to peer
// instances, MQTT targets and WebSocket clients through a durable delivery
// queue.
//
// # Startup Order
//
//  1. Configuration (Koanf v2: defaults, config.yaml, environment)
//  2. Logging and error reporting (zerolog, Sentry when a DSN is set)
//  3. Database and registry seeding
//  4. Embedded NATS broker (optional) and the delivery transport
//  5. Forwarder, MQTT publisher pool, dedup store and WebSocket hub
//  6. Supervisor tree: delivery router, retention scheduler, hub, HTTP server
//
// # Transports
//
// DELIVERY_TRANSPORT selects how delivery units travel between the
// coordinator and the executor:
//
//	DELIVERY_TRANSPORT=memory   # in-process GoChannel, lost on restart
//	DELIVERY_TRANSPORT=nats     # JetStream, survives restarts
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. Services get
// SUPERVISOR_SHUTDOWN_TIMEOUT to stop, after which the publisher pool,
// transport, dedup store, database and broker are closed in that order.
package main
