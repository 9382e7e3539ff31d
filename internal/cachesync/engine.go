// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package cachesync

import (
	"sync"
	"time"

	"github.com/medianest/medianest/internal/cache"
	"github.com/medianest/medianest/internal/events"
	"github.com/medianest/medianest/internal/logging"
	"github.com/medianest/medianest/internal/metrics"
)

// timeFields are payload keys normalized from their wire representation
// (epoch milliseconds or RFC 3339 strings) into time.Time.
var timeFields = []string{"updated_at", "checked_at", "last_check", "timestamp"}

// Engine merges push updates into the shared cache.
type Engine struct {
	store     *cache.Store
	markerTTL time.Duration

	// clock is injectable for tests; defaults to time.Now.
	clock func() time.Time

	mu      sync.Mutex
	markers map[string]time.Time
	timers  map[string]*time.Timer
}

// New creates an engine writing into store. markerTTL controls how long a
// record keeps its "just updated" marker.
func New(store *cache.Store, markerTTL time.Duration) *Engine {
	return &Engine{
		store:     store,
		markerTTL: markerTTL,
		clock:     time.Now,
		markers:   make(map[string]time.Time),
		timers:    make(map[string]*time.Timer),
	}
}

// SetClock replaces the engine's time source. Test hook.
func (e *Engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// ApplySingleUpdate shallow-merges fields over the record at
// "<resource>:<id>", inserting it if absent. Date-like fields are
// normalized in place. Malformed input never removes or errors the
// record; an empty field set still refreshes the update time so the
// entity stays visible.
func (e *Engine) ApplySingleUpdate(resource, id string, fields map[string]any) {
	if id == "" {
		metrics.CachePatchesDegraded.Inc()
		return
	}
	if fields == nil {
		metrics.CachePatchesDegraded.Inc()
		fields = map[string]any{}
	}

	updatedAt := e.normalizeTimes(fields)
	key := resource + ":" + id
	e.store.Patch(key, fields, updatedAt)
	e.MarkUpdated(key)

	metrics.CachePatchesApplied.WithLabelValues("single").Inc()
	logging.Debug().Str("key", key).Int("fields", len(fields)).Msg("applied single update")
}

// ApplyBulkUpdate replaces the entire "<resource>:" slice of the cache
// with entries. A nil list is a no-op, preserving the prior collection;
// an empty (non-nil) list is an authoritative "nothing exists" replace.
func (e *Engine) ApplyBulkUpdate(resource string, entries []events.StatusUpdate) {
	if entries == nil {
		metrics.CachePatchesDegraded.Inc()
		logging.Warn().Str("resource", resource).Msg("ignoring bulk update without a list")
		return
	}

	prefix := resource + ":"
	recs := make(map[string]cache.Record, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		fields := entry.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		updatedAt := e.normalizeTimes(fields)
		recs[prefix+entry.ID] = cache.Record{Fields: fields, UpdatedAt: updatedAt}
	}

	e.store.ReplacePrefix(prefix, recs)

	metrics.CachePatchesApplied.WithLabelValues("bulk").Inc()
	logging.Debug().Str("resource", resource).Int("entries", len(recs)).Msg("applied bulk update")
}

// MarkUpdated flags key as recently updated and schedules the marker's
// removal after the configured TTL. Each entity's marker expires
// independently; re-marking restarts the clock.
func (e *Engine) MarkUpdated(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.markers[key] = e.clock()

	if timer, ok := e.timers[key]; ok {
		timer.Stop()
	}
	e.timers[key] = time.AfterFunc(e.markerTTL, func() {
		e.expireMarker(key)
	})
}

// IsRecentlyUpdated reports whether key's marker is still live.
func (e *Engine) IsRecentlyUpdated(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	marked, ok := e.markers[key]
	if !ok {
		return false
	}
	// Guard against a late timer when a fake clock outruns real time.
	return e.clock().Sub(marked) < e.markerTTL
}

// Close stops all pending marker timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, timer := range e.timers {
		timer.Stop()
		delete(e.timers, key)
	}
	e.markers = make(map[string]time.Time)
}

func (e *Engine) expireMarker(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// An old timer can fire in the instant before a re-mark stops it. The
	// marker it would remove is then fresh and must survive.
	if marked, ok := e.markers[key]; ok && e.clock().Sub(marked) < e.markerTTL {
		return
	}
	delete(e.markers, key)
	delete(e.timers, key)
}

// normalizeTimes rewrites known date-like fields into time.Time and
// returns the instant to use as the record's update time. Unparseable
// values are left as-is rather than dropped.
func (e *Engine) normalizeTimes(fields map[string]any) time.Time {
	updatedAt := e.clock()

	for _, key := range timeFields {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		parsed, ok := parseWireTime(raw)
		if !ok {
			continue
		}
		fields[key] = parsed
		if key == "updated_at" {
			updatedAt = parsed
		}
	}

	return updatedAt
}

// parseWireTime converts a wire timestamp (epoch milliseconds as a JSON
// number, or an RFC 3339 string) into time.Time.
func parseWireTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case float64:
		return time.UnixMilli(int64(v)), true
	case int64:
		return time.UnixMilli(v), true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
