// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package ratelimit

import (
	"sync"
	"time"

	"github.com/medianest/medianest/internal/logging"
	"github.com/medianest/medianest/internal/metrics"
)

// Limiter answers admission-control questions from the durable ledger.
//
// Every read prunes lazily: the ledger is filtered to the window before
// counting, and the filtered view is persisted back. The mutex only keeps
// in-process load/save round trips coherent; cross-process admission is
// advisory by design.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration

	// clock is injectable for tests; defaults to time.Now.
	clock func() time.Time

	mu sync.Mutex
}

// NewLimiter creates a limiter admitting limit actions per window.
func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		clock:  time.Now,
	}
}

// SetClock replaces the limiter's time source. Test hook.
func (l *Limiter) SetClock(clock func() time.Time) {
	l.clock = clock
}

// Limit returns the configured admission limit.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured admission window.
func (l *Limiter) Window() time.Duration { return l.window }

// CanRequest reports whether one more action may proceed now.
func (l *Limiter) CanRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	pruned := l.prune()
	return len(pruned) < l.limit
}

// RemainingRequests returns how many admissions are left in the window.
func (l *Limiter) RemainingRequests() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	pruned := l.prune()
	if len(pruned) >= l.limit {
		return 0
	}
	return l.limit - len(pruned)
}

// TrackRequest appends a successful admission and persists it durably
// before returning.
func (l *Limiter) TrackRequest() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	pruned := Prune(l.store.Load(), now, l.window)
	pruned = append(pruned, now.UnixMilli())

	if err := l.store.Save(pruned); err != nil {
		return err
	}
	metrics.LedgerSize.Set(float64(len(pruned)))
	return nil
}

// ResetTime returns when the oldest in-window admission expires, freeing
// one slot. Returns ok=false while the window is empty.
func (l *Limiter) ResetTime() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return ResetAt(l.prune(), l.clock(), l.window)
}

// prune loads, filters to the window, persists the filtered view, and
// returns it. Must be called with mu held. A failed persist does not block
// the answer; the next successful write re-bounds the stored value.
func (l *Limiter) prune() Ledger {
	pruned := Prune(l.store.Load(), l.clock(), l.window)
	if err := l.store.Save(pruned); err != nil {
		logging.Warn().Err(err).Msg("failed to persist pruned ledger")
	}
	metrics.LedgerSize.Set(float64(len(pruned)))
	return pruned
}
