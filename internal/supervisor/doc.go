// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package supervisor builds the suture supervision tree for the sync core.

The tree has two layers:
  - messaging: the backend connection manager and the push-message router
  - api: the HTTP server

A crash in the messaging layer restarts only that layer; the API keeps
serving cached state while the connection re-establishes. Supervisor
lifecycle events are logged through sutureslog via the logging package's
slog adapter.
*/
package supervisor
