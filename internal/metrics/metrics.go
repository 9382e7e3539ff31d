// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection Metrics
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medianest_connection_state",
			Help: "Backend connection state (0=disconnected, 1=connecting, 2=connected)",
		},
	)

	ConnectionReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medianest_connection_reconnects_total",
			Help: "Total number of automatic reconnect attempts",
		},
	)

	ConnectionProbeLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medianest_connection_probe_latency_seconds",
			Help:    "Round-trip latency of connection quality probes",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianest_messages_received_total",
			Help: "Total push messages received from the backend",
		},
		[]string{"event"},
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianest_messages_dropped_total",
			Help: "Push messages dropped at the transport boundary",
		},
		[]string{"reason"}, // "malformed", "unknown_event"
	)

	// Admission Control Metrics
	AdmissionDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianest_admission_decisions_total",
			Help: "Admission control decisions",
		},
		[]string{"decision"}, // "allowed", "denied"
	)

	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medianest_ledger_entries",
			Help: "Admission ledger entries within the current window",
		},
	)

	// Cache Synchronization Metrics
	CachePatchesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianest_cache_patches_total",
			Help: "Push updates applied to the shared cache",
		},
		[]string{"kind"}, // "single", "bulk"
	)

	CachePatchesDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medianest_cache_patches_degraded_total",
			Help: "Push updates applied partially or skipped due to malformed payloads",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medianest_cache_hits_total",
			Help: "Shared cache read hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medianest_cache_misses_total",
			Help: "Shared cache read misses",
		},
	)

	// Submission Metrics
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianest_submissions_total",
			Help: "Request submissions by outcome",
		},
		[]string{"outcome"}, // "succeeded", "rejected", "failed"
	)

	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medianest_submission_duration_seconds",
			Help:    "Duration of request submissions including admission check",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "medianest_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianest_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medianest_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medianest_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)
