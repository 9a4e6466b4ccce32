// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomeDropped = "dropped"
)

var (
	// Delivery queue
	DeliveryUnitsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trunkcast_delivery_units_enqueued_total",
			Help: "Total number of delivery units published to the queue",
		},
		[]string{"kind"},
	)

	DeliveryUnitsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trunkcast_delivery_units_executed_total",
			Help: "Total number of delivery unit executions by outcome",
		},
		[]string{"kind", "outcome"}, // success, failure, skipped, dropped
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trunkcast_delivery_duration_seconds",
			Help:    "Duration of a single delivery unit execution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Remote forwarding
	ForwardRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trunkcast_forward_requests_total",
			Help: "Total number of forward attempts to peer instances",
		},
		[]string{"destination", "outcome"},
	)

	ForwardCircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trunkcast_forward_circuit_breaker_state",
			Help: "Circuit breaker state per peer (0=closed, 1=half-open, 2=open)",
		},
		[]string{"destination"},
	)

	// Durable publishing
	PublishMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trunkcast_publish_messages_total",
			Help: "Total number of messages published to broker queues",
		},
		[]string{"queue", "outcome"},
	)

	// Retention pruning
	PruneTransmissionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trunkcast_prune_transmissions_deleted_total",
			Help: "Total number of transmissions removed by the retention pruner",
		},
	)

	PruneFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trunkcast_prune_failures_total",
			Help: "Total number of per-system prune failures",
		},
	)

	PruneDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trunkcast_prune_duration_seconds",
			Help:    "Duration of a full retention sweep",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
	)

	// WebSocket
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trunkcast_websocket_connections",
			Help: "Current number of connected real-time clients",
		},
	)

	WebSocketMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trunkcast_websocket_messages_dropped_total",
			Help: "Total number of messages dropped because a client buffer was full",
		},
	)

	// Idempotency
	DedupSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trunkcast_dedup_skipped_total",
			Help: "Total number of delivery units skipped as already delivered",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trunkcast_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trunkcast_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trunkcast_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB statements in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trunkcast_duckdb_query_errors_total",
			Help: "Total number of failed DuckDB statements",
		},
		[]string{"operation", "table"},
	)
)

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// RecordEnqueue records a unit published to the delivery queue
func RecordEnqueue(kind string) {
	DeliveryUnitsEnqueued.WithLabelValues(kind).Inc()
}

// RecordExecution records one delivery unit execution. Pass OutcomeSkipped or
// OutcomeDropped as override when the unit was not attempted.
func RecordExecution(kind, override string, duration time.Duration, err error) {
	o := override
	if o == "" {
		o = outcome(err)
	}
	DeliveryUnitsExecuted.WithLabelValues(kind, o).Inc()
	DeliveryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordForward records a forward attempt to a peer
func RecordForward(destination string, err error) {
	ForwardRequests.WithLabelValues(destination, outcome(err)).Inc()
}

// SetBreakerState records the breaker state for a peer
func SetBreakerState(destination string, state int) {
	ForwardCircuitBreakerState.WithLabelValues(destination).Set(float64(state))
}

// RecordPublish records a broker publish
func RecordPublish(queue string, err error) {
	PublishMessages.WithLabelValues(queue, outcome(err)).Inc()
}

// RecordPrune records the result of a retention sweep
func RecordPrune(deleted, failures int, duration time.Duration) {
	PruneTransmissionsDeleted.Add(float64(deleted))
	PruneFailures.Add(float64(failures))
	PruneDuration.Observe(duration.Seconds())
}

// TrackWebSocketConnection adjusts the connected-client gauge
func TrackWebSocketConnection(connected bool) {
	if connected {
		WebSocketConnections.Inc()
	} else {
		WebSocketConnections.Dec()
	}
}

// RecordWebSocketDrop records a message dropped for a slow client
func RecordWebSocketDrop() {
	WebSocketMessagesDropped.Inc()
}

// RecordDedupSkip records a unit skipped by the idempotency store
func RecordDedupSkip() {
	DedupSkipped.Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDBQuery records a database statement metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
