// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package cache provides the shared keyed record collection read by the
dashboard UI layers and patched by the cache synchronization engine.

Keys are namespaced by resource kind ("service:svc-1", "request:req-9"),
which makes prefix invalidation the unit of cache busting after a write.

Reads return defensive copies, so callers may inspect or mutate a returned
Record without racing writers. Hit/miss counts are tracked per store and
mirrored to Prometheus.
*/
package cache
