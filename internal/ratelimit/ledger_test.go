// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package ratelimit

import (
	"testing"
	"time"
)

func TestPrune_FiltersExpiredEntries(t *testing.T) {
	now := time.UnixMilli(100_000)
	window := 10 * time.Second

	ledger := Ledger{
		89_000,  // 11s old, outside
		90_000,  // exactly at cutoff, outside (strict >)
		90_001,  // just inside
		99_000,  // inside
		100_000, // now, inside
	}

	pruned := Prune(ledger, now, window)
	if len(pruned) != 3 {
		t.Fatalf("Expected 3 entries in window, got %d: %v", len(pruned), pruned)
	}
	if pruned[0] != 90_001 {
		t.Errorf("Expected oldest surviving entry 90001, got %d", pruned[0])
	}
}

func TestPrune_EmptyLedger(t *testing.T) {
	pruned := Prune(nil, time.Now(), time.Hour)
	if len(pruned) != 0 {
		t.Errorf("Expected empty result, got %v", pruned)
	}
}

func TestRemaining_Window(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	window := time.Minute

	var ledger Ledger
	for i := 0; i < 7; i++ {
		ledger = append(ledger, now.UnixMilli()-int64(i*1000))
	}

	if got := Remaining(ledger, 10, now, window); got != 3 {
		t.Errorf("Expected 3 remaining, got %d", got)
	}
	if got := Remaining(ledger, 5, now, window); got != 0 {
		t.Errorf("Expected 0 remaining when over limit, got %d", got)
	}
	if !CanAdmit(ledger, 10, now, window) {
		t.Error("Expected admission below limit")
	}
	if CanAdmit(ledger, 7, now, window) {
		t.Error("Expected rejection at limit")
	}
}

func TestResetAt_OldestPlusWindow(t *testing.T) {
	now := time.UnixMilli(200_000)
	window := 30 * time.Second

	ledger := Ledger{195_000, 180_000, 199_000}

	resetAt, ok := ResetAt(ledger, now, window)
	if !ok {
		t.Fatal("Expected reset time for non-empty window")
	}
	want := time.UnixMilli(180_000 + 30_000)
	if !resetAt.Equal(want) {
		t.Errorf("Expected reset at %v, got %v", want, resetAt)
	}
}

func TestResetAt_EmptyWindow(t *testing.T) {
	if _, ok := ResetAt(Ledger{}, time.Now(), time.Hour); ok {
		t.Error("Expected no reset time for empty ledger")
	}

	// Entries exist but all fall outside the window.
	now := time.UnixMilli(500_000)
	if _, ok := ResetAt(Ledger{100_000}, now, time.Second); ok {
		t.Error("Expected no reset time when window is empty")
	}
}

func TestResetAt_MonotonicWithoutNewTracks(t *testing.T) {
	window := time.Minute
	ledger := Ledger{60_000, 70_000, 80_000}

	var prev time.Time
	for _, nowMs := range []int64{90_000, 100_000, 110_000, 119_999} {
		resetAt, ok := ResetAt(ledger, time.UnixMilli(nowMs), window)
		if !ok {
			t.Fatalf("Expected reset time at now=%d", nowMs)
		}
		if !prev.IsZero() && resetAt.Before(prev) {
			t.Errorf("Reset time decreased: %v -> %v at now=%d", prev, resetAt, nowMs)
		}
		prev = resetAt
	}

	// The instant the last entry leaves the window, reset goes away.
	if _, ok := ResetAt(ledger, time.UnixMilli(140_001), window); ok {
		t.Error("Expected window to be empty once all entries expired")
	}
}
