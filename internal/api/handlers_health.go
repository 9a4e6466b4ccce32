// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package api

import (
	"context"
	"net/http"
	"time"
)

const readyCheckTimeout = 2 * time.Second

// HealthLive reports that the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 200 only when the database answers and the delivery
// router is consuming units.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	dbConnected := h.store != nil && h.store.Ping(ctx) == nil
	deliveryRunning := h.delivery != nil && h.delivery.IsRunning()
	ready := dbConnected && deliveryRunning

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	rw := NewResponseWriter(w, r)
	rw.writeJSON(status, APIResponse{
		Success: ready,
		Data: map[string]any{
			"database_connected": dbConnected,
			"delivery_running":   deliveryRunning,
			"uptime":             time.Since(h.startTime).Seconds(),
		},
		Meta: rw.meta(),
	})
}
