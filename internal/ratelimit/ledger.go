// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package ratelimit

import "time"

// Ledger is an ordered list of admission timestamps in epoch milliseconds.
type Ledger []int64

// Prune returns the entries still inside the window at now, preserving
// order. The result aliases nothing; callers may persist it directly.
func Prune(ledger Ledger, now time.Time, window time.Duration) Ledger {
	cutoff := now.UnixMilli() - window.Milliseconds()

	pruned := make(Ledger, 0, len(ledger))
	for _, ts := range ledger {
		if ts > cutoff {
			pruned = append(pruned, ts)
		}
	}
	return pruned
}

// Remaining returns how many admissions are left in the window:
// max(0, limit - len(pruned ledger)).
func Remaining(ledger Ledger, limit int, now time.Time, window time.Duration) int {
	count := len(Prune(ledger, now, window))
	if count >= limit {
		return 0
	}
	return limit - count
}

// CanAdmit reports whether one more admission fits inside the window.
func CanAdmit(ledger Ledger, limit int, now time.Time, window time.Duration) bool {
	return len(Prune(ledger, now, window)) < limit
}

// ResetAt returns the instant the oldest in-window admission falls out of
// the window, freeing one slot. The second return is false when the window
// holds no admissions (nothing to wait for).
func ResetAt(ledger Ledger, now time.Time, window time.Duration) (time.Time, bool) {
	pruned := Prune(ledger, now, window)
	if len(pruned) == 0 {
		return time.Time{}, false
	}

	oldest := pruned[0]
	for _, ts := range pruned[1:] {
		if ts < oldest {
			oldest = ts
		}
	}
	return time.UnixMilli(oldest + window.Milliseconds()), true
}
