// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package queue carries delivery units from the coordinator to their executor.

A unit is one event bound for one destination. Each unit is enqueued as its
own Watermill message, so a failing destination is retried on its own and
never delays or fails its siblings:

	transport := queue.NewMemoryTransport(queue.NewLoggerAdapter("delivery"))
	q := queue.New(transport.Publisher, queue.DefaultTopic)

	router, _ := queue.NewRouter(queue.DefaultRouterConfig(), transport.Publisher, logger)
	exec := queue.NewExecutor(fwd, registry, pool, hub, queue.WithDeduper(store))
	exec.Register(router, transport.Subscriber, queue.DefaultTopic)

# Transports

The memory transport is a gochannel pub/sub and loses pending units on exit.
Units enqueued while no router is subscribed, at startup or between router
restarts, are held in a bounded backlog and handed to the next subscriber.
Messages on any other topic without a subscriber, such as the poison topic,
are logged and discarded.
The nats transport uses JetStream with a durable consumer and a queue group,
so pending units survive restarts and several workers can share the load.

# Failure handling

Handler errors are retried with exponential backoff and then moved to the
poison topic. Configuration errors (a target that was deleted or disabled
after the unit was enqueued) and undecodable messages are logged and acked.
*/
package queue
