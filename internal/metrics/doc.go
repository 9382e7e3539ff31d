// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package metrics provides Prometheus instrumentation for the sync core.

Metrics are registered with promauto on the default registry and exposed
at /metrics by the API layer. Covered areas:

  - Backend connection lifecycle (state, reconnect attempts, probe latency)
  - Admission control decisions (allowed, denied)
  - Cache synchronization (patches applied, degraded payloads)
  - Request submissions (per outcome)
  - Circuit breaker state transitions
  - API request counts and durations
*/
package metrics
