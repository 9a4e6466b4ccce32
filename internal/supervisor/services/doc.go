// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package services adapts Trunkcast components to suture.Service.

Each wrapper turns a component lifecycle into Serve(ctx) error and names
itself through String for supervisor logs:

  - HTTPServerService: ListenAndServe with graceful Shutdown. A fresh
    *http.Server is built for every start.
  - WebSocketHubService: delegates to websocket.Hub.RunWithContext.
  - DeliveryRouterService: builds and runs a queue.Router. A fresh router
    and subscriber are built for every start, and IsRunning reports on the
    current one for the readiness check.

The prune scheduler implements suture.Service itself and is added to the
tree directly.
*/
package services
