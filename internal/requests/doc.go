// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package requests orchestrates media request submission: admission check
against the durable ledger, the upstream API call behind a circuit
breaker, and the post-success side effects (ledger append, cache
invalidation, realtime subscription).

Submit never returns an error. Every attempt yields a typed Outcome
(rejected, failed, succeeded) with a display-safe message; upstream error
text goes to the log with a correlation ID and never reaches the caller.
*/
package requests
