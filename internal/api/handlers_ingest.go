// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/models"
)

// HeaderAPIKey carries the ingest key on local ingestion.
const HeaderAPIKey = "X-API-Key"

// IngestResponse is returned by both ingestion routes.
type IngestResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	SystemID  int64  `json:"system"`
	Duplicate bool   `json:"duplicate"`
	Enqueued  int    `json:"enqueued"`
	Failed    int    `json:"failed"`
}

// Ingest accepts an event from a local recorder.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.validIngestKey(r.Header.Get(HeaderAPIKey)) {
		rw.Unauthorized("invalid or missing API key")
		return
	}

	kind, payload, ok := h.readEvent(rw, r)
	if !ok {
		return
	}

	systemID, ok := payload.SystemID()
	if !ok {
		rw.BadRequest(ErrMissingSystem.Error())
		return
	}

	h.storeAndDispatch(rw, r, kind, payload, systemID)
}

// Forward accepts an event from a federated peer. The peer identifies itself
// with the recorder key inside the payload.
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	kind, payload, ok := h.readEvent(rw, r)
	if !ok {
		return
	}

	key, _ := payload[models.PayloadKeyRecorder].(string)
	if key == "" {
		rw.Unauthorized(ErrMissingRecorder.Error())
		return
	}

	systemID, err := h.store.RecorderSystem(r.Context(), key)
	if errors.Is(err, models.ErrNotFound) {
		logging.Ctx(r.Context()).Warn().Str("kind", string(kind)).Msg("forwarded event rejected: unknown recorder key")
		rw.Unauthorized("unknown recorder")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	payload[models.PayloadKeySystem] = systemID
	delete(payload, models.PayloadKeyRecorder)

	h.storeAndDispatch(rw, r, kind, payload, systemID)
}

func (h *Handler) validIngestKey(got string) bool {
	if h.ingestKey == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.ingestKey)) == 1
}

// readEvent parses {kind} and the JSON body. It writes the error response
// itself and reports ok=false on failure.
func (h *Handler) readEvent(rw *ResponseWriter, r *http.Request) (models.EventKind, models.Payload, bool) {
	kind, err := models.ParseEventKind(chi.URLParam(r, "kind"))
	if err != nil {
		rw.NotFound(err.Error())
		return "", nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(rw.w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, fmt.Sprintf("payload exceeds %d bytes", tooLarge.Limit))
			return "", nil, false
		}
		rw.BadRequest("failed to read request body")
		return "", nil, false
	}

	payload, err := models.ParsePayload(body)
	if err != nil {
		rw.BadRequest(err.Error())
		return "", nil, false
	}
	return kind, payload, true
}

// storeAndDispatch persists the event and fans it out. A duplicate id is
// acknowledged without a second dispatch.
func (h *Handler) storeAndDispatch(rw *ResponseWriter, r *http.Request, kind models.EventKind, payload models.Payload, systemID int64) {
	ctx := r.Context()

	id, inserted, err := h.persist(r, kind, payload, systemID)
	if err != nil {
		var bad *badEventError
		if errors.As(err, &bad) {
			rw.BadRequest(bad.Error())
			return
		}
		rw.DatabaseError(err)
		return
	}

	resp := IngestResponse{ID: id, Kind: string(kind), SystemID: systemID, Duplicate: !inserted}
	log := logging.Ctx(ctx).With().
		Str("event_id", id).
		Str("kind", string(kind)).
		Int64("system_id", systemID).
		Logger()

	if !inserted {
		log.Info().Msg("duplicate event ignored")
		rw.Success(resp)
		return
	}

	res, err := h.dispatcher.Dispatch(ctx, kind, payload, systemID)
	resp.Enqueued = res.Enqueued
	resp.Failed = res.Failed
	if err != nil {
		h.reporter.CaptureError(ctx, err, map[string]string{"event_id": id, "kind": string(kind)})
		if res.Enqueued == 0 {
			log.Error().Err(err).Msg("event stored but not dispatched")
			rw.ServiceUnavailable("event stored but delivery could not be queued")
			return
		}
		log.Warn().Err(err).Int("failed", res.Failed).Msg("event partially dispatched")
	}

	if err := h.dispatcher.NotifyMutation(ctx, id, string(kind), models.MutationCreate); err != nil {
		log.Warn().Err(err).Msg("failed to emit create mutation")
	}

	log.Info().Int("enqueued", res.Enqueued).Msg("event accepted")
	rw.Accepted(resp)
}

type badEventError struct{ err error }

func (e *badEventError) Error() string { return e.err.Error() }
func (e *badEventError) Unwrap() error { return e.err }

func (h *Handler) persist(r *http.Request, kind models.EventKind, payload models.Payload, systemID int64) (string, bool, error) {
	ctx := r.Context()
	switch kind {
	case models.EventKindTransmission:
		t, err := models.TransmissionFromPayload(payload, systemID, h.now())
		if err != nil {
			return "", false, &badEventError{err: err}
		}
		inserted, err := h.store.InsertTransmission(ctx, t)
		return t.ID, inserted, err
	case models.EventKindIncident:
		inc := models.IncidentFromPayload(payload, systemID)
		inserted, err := h.store.InsertIncident(ctx, inc)
		return inc.ID, inserted, err
	default:
		return "", false, &badEventError{err: fmt.Errorf("unknown event kind %q", kind)}
	}
}
