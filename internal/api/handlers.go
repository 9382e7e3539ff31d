// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/medianest/medianest/internal/cache"
	"github.com/medianest/medianest/internal/events"
	"github.com/medianest/medianest/internal/logging"
	"github.com/medianest/medianest/internal/realtime"
	"github.com/medianest/medianest/internal/requests"
)

// servicePrefix is the cache key prefix for the service-health collection.
const servicePrefix = "service:"

// Realtime is the connection-manager surface the handlers need.
// Implemented by realtime.Manager.
type Realtime interface {
	State() realtime.ConnState
	IsConnected() bool
	Reconnect(ctx context.Context)
	Emit(event string, payload any)
	CheckConnectionQuality(ctx context.Context) (realtime.Quality, error)
}

// Submitting is the orchestrator surface the handlers need.
type Submitting interface {
	Submit(ctx context.Context, sub requests.Submission) requests.Outcome
	CurrentQuota() requests.Quota
}

// Handler holds the request handlers for the sync core API.
type Handler struct {
	orchestrator Submitting
	realtime     Realtime
	store        *cache.Store
}

// NewHandler creates the handler set.
func NewHandler(orchestrator Submitting, rt Realtime, store *cache.Store) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		realtime:     rt,
		store:        store,
	}
}

// writeJSON serializes a response body; encode failures are logged, the
// status line has already been sent.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health reports process liveness plus the backend connection flag.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"connected": h.realtime.IsConnected(),
	})
}

// SubmitRequest runs one media request submission through the
// orchestrator. The outcome kind maps onto the status code; the body is
// the full outcome either way.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var sub requests.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sub.MediaType == "" || sub.MediaID == "" {
		writeError(w, http.StatusBadRequest, "media_type and media_id are required")
		return
	}

	outcome := h.orchestrator.Submit(r.Context(), sub)

	switch outcome.Kind {
	case requests.OutcomeSucceeded:
		writeJSON(w, http.StatusCreated, outcome)
	case requests.OutcomeRejected:
		if outcome.ResetKnown {
			retryAfter := int(time.Until(outcome.ResetAt).Seconds()) + 1
			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
		}
		writeJSON(w, http.StatusTooManyRequests, outcome)
	default:
		writeJSON(w, http.StatusBadGateway, outcome)
	}
}

// RequestQuota returns the current admission budget.
func (h *Handler) RequestQuota(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.CurrentQuota())
}

// ConnectionState returns the current connection snapshot. With
// ?probe=true a quality probe runs first, so the snapshot reflects a
// fresh round trip.
func (h *Handler) ConnectionState(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("probe") == "true" {
		if _, err := h.realtime.CheckConnectionQuality(r.Context()); err != nil {
			logging.Debug().Err(err).Msg("quality probe aborted")
		}
	}
	writeJSON(w, http.StatusOK, h.realtime.State())
}

// Reconnect forces a disconnect-then-reconnect cycle. The reconnect
// outlives the request, so it runs on a detached context.
func (h *Handler) Reconnect(w http.ResponseWriter, r *http.Request) {
	h.realtime.Reconnect(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconnecting"})
}

// serviceEntry is one cached service-health row.
type serviceEntry struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Services reads the cached service-health collection. Cache-first: this
// never touches the network, it reflects whatever push updates have
// landed so far.
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	keys := h.store.Keys(servicePrefix)
	sort.Strings(keys)

	entries := make([]serviceEntry, 0, len(keys))
	for _, key := range keys {
		rec, ok := h.store.Get(key)
		if !ok {
			continue
		}
		entries = append(entries, serviceEntry{
			ID:        key[len(servicePrefix):],
			Fields:    rec.Fields,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": entries})
}

// RefreshService asks the backend to re-push fresh state for one
// resource. Fire and forget; requires a live connection.
func (h *Handler) RefreshService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "service id is required")
		return
	}
	if !h.realtime.IsConnected() {
		writeError(w, http.StatusServiceUnavailable, "backend connection is down")
		return
	}

	h.realtime.Emit(events.EventRequestRefresh, map[string]string{"id": id})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested", "id": id})
}
