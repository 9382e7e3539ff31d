// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package cachesync applies push notifications from the status backend onto
the shared record cache and tracks ephemeral "just updated" markers that
drive transient UI emphasis.

Two message shapes are handled separately because their failure policy
differs: a malformed single update degrades to a best-effort partial merge
that keeps the existing record visible, while a malformed bulk update must
leave the whole collection untouched.

Markers expire independently per entity via one timer each; re-marking an
entity restarts its clock without touching its neighbors.
*/
package cachesync
