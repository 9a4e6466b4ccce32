// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/trunkcast/internal/coordinator"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/publisher"
	"github.com/tomtom215/trunkcast/internal/telemetry"
)

// Store is the persistence the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	InsertTransmission(ctx context.Context, t *models.Transmission) (bool, error)
	InsertIncident(ctx context.Context, inc *models.Incident) (bool, error)
	RecorderSystem(ctx context.Context, key string) (int64, error)
	GetMQTTTarget(ctx context.Context, id int64) (*models.MQTTTarget, error)
}

// Dispatcher fans a stored event out to its destinations.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind models.EventKind, payload models.Payload, systemID int64) (coordinator.Result, error)
	NotifyMutation(ctx context.Context, id, entityType, eventType string) error
}

// DeliveryStatus reports whether delivery units are being consumed.
type DeliveryStatus interface {
	IsRunning() bool
}

// TestPublishFunc publishes one message through a short-lived publisher.
// It matches publisher.With.
type TestPublishFunc func(ctx context.Context, cfg publisher.Config, fn func(context.Context, *publisher.Publisher) error) error

// HandlerConfig holds the handler dependencies.
type HandlerConfig struct {
	Store      Store
	Dispatcher Dispatcher
	Delivery   DeliveryStatus
	Reporter   telemetry.Reporter

	// IngestKey must match X-API-Key on local ingestion. Empty disables
	// local ingestion.
	IngestKey string

	// Publisher is the base config for MQTT target tests.
	Publisher publisher.Config

	// MaxBodyBytes caps ingested payloads.
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes is applied when HandlerConfig.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 1 << 20

// Handler serves the API routes.
type Handler struct {
	store       Store
	dispatcher  Dispatcher
	delivery    DeliveryStatus
	reporter    telemetry.Reporter
	ingestKey   string
	publisher   publisher.Config
	publishWith TestPublishFunc
	maxBody     int64
	startTime   time.Time
	now         func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg *HandlerConfig) *Handler {
	h := &Handler{
		store:       cfg.Store,
		dispatcher:  cfg.Dispatcher,
		delivery:    cfg.Delivery,
		reporter:    cfg.Reporter,
		ingestKey:   cfg.IngestKey,
		publisher:   cfg.Publisher,
		publishWith: publisher.With,
		maxBody:     cfg.MaxBodyBytes,
		startTime:   time.Now(),
		now:         time.Now,
	}
	if h.reporter == nil {
		h.reporter = telemetry.Nop{}
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	return h
}

// NotFound is the router's fallback.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).NotFound("route not found")
}

// MethodNotAllowed is the router's 405 handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}
