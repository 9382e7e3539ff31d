// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/medianest/medianest/internal/metrics"
)

// Record is one cached entity: an open field set plus the normalized
// update time maintained by the sync engine.
type Record struct {
	Fields    map[string]any
	UpdatedAt time.Time
}

// clone returns a copy whose field map is independent of the original.
// Readers must never receive a map they could mutate under a writer.
func (r Record) clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Fields: fields, UpdatedAt: r.UpdatedAt}
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Store is a thread-safe keyed record collection.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Record
	stats   Stats
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]Record)}
}

// Get retrieves a record copy by key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.RLock()
	rec, ok := s.entries[key]
	if ok {
		rec = rec.clone()
	}
	s.mu.RUnlock()

	if !ok {
		s.recordMiss()
		return Record{}, false
	}
	s.recordHit()
	return rec, true
}

// Set stores a record wholesale, replacing any prior entry.
func (s *Store) Set(key string, rec Record) {
	s.mu.Lock()
	s.entries[key] = rec.clone()
	s.mu.Unlock()
}

// Patch shallow-merges fields over the existing record: present keys
// overwrite, absent keys stay untouched. If the key does not exist, a new
// record is created from fields alone. Returns the resulting record.
func (s *Store) Patch(key string, fields map[string]any, updatedAt time.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[key]
	if !ok {
		rec = Record{Fields: make(map[string]any, len(fields))}
	} else {
		rec = rec.clone()
	}

	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.UpdatedAt = updatedAt

	s.entries[key] = rec
	return rec.clone()
}

// ReplacePrefix atomically replaces every record under prefix with the
// given set. Records outside the prefix are untouched; corruption of
// unrelated entries would break the patch isolation invariant.
func (s *Store) ReplacePrefix(prefix string, recs map[string]Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	for key, rec := range recs {
		s.entries[key] = rec.clone()
	}
}

// Invalidate removes every record whose key starts with prefix, forcing
// the next read-through to refetch. Returns the number of evictions.
func (s *Store) Invalidate(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	s.stats.Evictions += int64(removed)
	return removed
}

// Keys returns all keys under prefix. Pass "" for every key.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns a snapshot of the performance counters.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) recordHit() {
	s.mu.Lock()
	s.stats.Hits++
	s.mu.Unlock()
	metrics.CacheHits.Inc()
}

func (s *Store) recordMiss() {
	s.mu.Lock()
	s.stats.Misses++
	s.mu.Unlock()
	metrics.CacheMisses.Inc()
}
