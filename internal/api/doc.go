// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package api is the HTTP surface of Trunkcast, routed with chi.

Routes:

	GET  /api/v1/health/live            liveness check
	GET  /api/v1/health/ready           database ping and delivery router state
	GET  /metrics                       Prometheus exposition
	GET  /ws                            real-time client WebSocket
	POST /api/radio/{kind}              local ingestion, X-API-Key required
	POST /api/radio/{kind}/forward      receipt from a federated peer
	POST /api/v1/mqtt-targets/{id}/test publish a test message to one target

{kind} is "transmission" or "incident". Ingestion persists the event, hands
it to the dispatcher and emits a "create" mutation. Events whose id is
already stored are acknowledged without a second dispatch.

A peer-forwarded event carries the sender's recorder key in "recorder". The
key resolves to the local system the event is filed under; an unknown key
is rejected with 401.

Every response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
*/
package api
