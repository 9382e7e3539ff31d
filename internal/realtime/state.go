// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package realtime

import "time"

// Quality is the coarse connection-quality bucket derived from probes.
type Quality string

const (
	QualityUnknown   Quality = "unknown"
	QualityPoor      Quality = "poor"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

// qualityForLatency buckets a probe round trip.
func qualityForLatency(rtt time.Duration) Quality {
	switch {
	case rtt < 100*time.Millisecond:
		return QualityExcellent
	case rtt < 300*time.Millisecond:
		return QualityGood
	default:
		return QualityPoor
	}
}

// ConnState is an immutable connection snapshot. Transport callbacks
// produce a new snapshot via the with* transitions below; observers only
// ever see whole values, never shared mutable state.
type ConnState struct {
	Connected  bool    `json:"connected"`
	Connecting bool    `json:"connecting"`
	Quality    Quality `json:"quality"`

	// LatencyMs is the last probe round trip; -1 until a probe succeeds.
	LatencyMs int64 `json:"latency_ms"`

	// ReconnectAttempt counts consecutive automatic retries; reset to 0
	// on a successful handshake.
	ReconnectAttempt int `json:"reconnect_attempt"`

	LastError string `json:"last_error,omitempty"`
}

// initialState is the snapshot at manager construction.
func initialState() ConnState {
	return ConnState{
		Connected:        false,
		Connecting:       false,
		Quality:          QualityUnknown,
		LatencyMs:        -1,
		ReconnectAttempt: 0,
	}
}

// withConnecting transitions to the connecting state, preserving the
// retry count and any prior error for UI display.
func (s ConnState) withConnecting() ConnState {
	s.Connected = false
	s.Connecting = true
	return s
}

// withConnected transitions to the connected state. The retry counter
// resets; a stale error no longer describes the connection.
func (s ConnState) withConnected() ConnState {
	s.Connected = true
	s.Connecting = false
	s.ReconnectAttempt = 0
	s.LastError = ""
	return s
}

// withDisconnected transitions to the idle disconnected state (explicit
// teardown, not a drop).
func (s ConnState) withDisconnected() ConnState {
	s.Connected = false
	s.Connecting = false
	return s
}

// withError records a transport failure. Errors surface on the snapshot,
// never as panics or thrown values.
func (s ConnState) withError(err error) ConnState {
	if err != nil {
		s.LastError = err.Error()
	}
	return s
}

// withRetry counts one automatic reconnect attempt.
func (s ConnState) withRetry() ConnState {
	s.ReconnectAttempt++
	return s
}

// withProbe records a completed quality probe.
func (s ConnState) withProbe(rtt time.Duration) ConnState {
	s.Quality = qualityForLatency(rtt)
	s.LatencyMs = rtt.Milliseconds()
	return s
}
