// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package ratelimit implements sliding-window admission control for
user-initiated write actions.

The window logic is pure: a ledger is a slice of epoch-millisecond
timestamps, and every question ("can this proceed", "when does quota
replenish") is answered by pruning and counting that slice. Storage is a
thin adapter; the pruned view produced by any read is what gets persisted
back, so the stored ledger is self-bounding.

The BadgerDB store gives the ledger restart survival: admissions consumed
before a crash still count against the window afterwards. A missing or
corrupt stored value degrades to an empty ledger rather than failing.

Enforcement is advisory. Two racing admission checks may both pass;
authoritative enforcement belongs to the backend.
*/
package ratelimit
