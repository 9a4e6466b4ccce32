// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/models"
	"github.com/tomtom215/trunkcast/internal/publisher"
	"github.com/tomtom215/trunkcast/internal/validation"
)

// MQTTTestRequest is the optional body of a target test.
type MQTTTestRequest struct {
	Kind    string `json:"kind" validate:"omitempty,oneof=transmission incident"`
	Message string `json:"message" validate:"max=256"`
}

// MQTTTestResponse reports where the test message went.
type MQTTTestResponse struct {
	TargetID int64  `json:"target_id"`
	Queue    string `json:"queue"`
	Enabled  bool   `json:"enabled"`
}

const testPublishTimeout = 10 * time.Second

// TestMQTTTarget publishes one message to a target over a publisher that is
// opened for this request and closed afterwards. Disabled targets can be
// tested; the response says whether dispatch would reach them.
func (h *Handler) TestMQTTTarget(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		rw.BadRequest("target id must be a positive integer")
		return
	}

	var req MQTTTestRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4096))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			rw.BadRequest("invalid JSON body")
			return
		}
	}
	if err := validation.ValidateStruct(&req); err != nil {
		rw.ValidationError(err.Error(), err)
		return
	}
	kind := models.EventKindTransmission
	if req.Kind != "" {
		kind = models.EventKind(req.Kind)
	}
	if req.Message == "" {
		req.Message = "trunkcast test message"
	}

	target, err := h.store.GetMQTTTarget(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		rw.NotFound("mqtt target not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	queue := target.QueueName(kind)
	data, err := json.Marshal(map[string]any{
		"type":      "test",
		"target_id": target.ID,
		"message":   req.Message,
		"time":      h.now().UTC(),
	})
	if err != nil {
		rw.InternalError("failed to encode test message")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), testPublishTimeout)
	defer cancel()

	err = h.publishWith(ctx, publisher.ForTarget(h.publisher, target), func(ctx context.Context, p *publisher.Publisher) error {
		return p.Publish(ctx, queue, data, "")
	})
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int64("target_id", target.ID).Str("queue", queue).Msg("mqtt target test failed")
		rw.ErrorWithDetails(http.StatusBadGateway, ErrCodePublishFailed, "test publish failed", err.Error())
		return
	}

	rw.Success(MQTTTestResponse{TargetID: target.ID, Queue: queue, Enabled: target.Enabled})
}
