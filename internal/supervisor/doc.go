// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package supervisor runs the long-lived Trunkcast services under a suture v4
supervisor tree.

# Overview

	RootSupervisor ("trunkcast")
	├── DataSupervisor ("data-layer")
	│   └── prune-scheduler (if prune.enabled)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub
	│   └── delivery-router
	└── APISupervisor ("api-layer")
	    └── http-server

A service that returns is restarted with backoff. Failure counts are kept
per layer, so a delivery router stuck in a crash loop leaves the HTTP
server and the hub alone.

Supervisor events go to the process zerolog stream through sutureslog and
logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
	    supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
	    logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddDataService(scheduler)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(deliveryService)
	tree.AddAPIService(services.NewHTTPServerService(newServer, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

Services live in the services subpackage.
*/
package supervisor
