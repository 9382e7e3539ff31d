// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package api exposes the sync core over HTTP using the Chi router: request
submission, admission quota, connection state, service status reads,
health, and Prometheus metrics.

Routes under /api carry a per-IP httprate throttle and Prometheus request
metrics; /healthz and /metrics stay outside the throttle so probes and
scrapers cannot starve themselves out.
*/
package api
