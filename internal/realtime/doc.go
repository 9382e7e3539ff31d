// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package realtime maintains the single logical push connection to the
status backend: dialing, login handshake, automatic reconnection, observer
broadcasting, raw event subscription, and quality probing.

# Connection Lifecycle

disconnected -> connecting -> connected. A transport drop moves the state
back to connecting and the manager retries forever with exponential
backoff (1s doubling to 32s); there is no terminal failure state. Every
transition produces an immutable ConnState snapshot delivered to all
registered observers.

# Failure Policy

Transport failures surface on state snapshots, never as panics or returned
errors from the lifecycle methods. Malformed inbound frames are counted
and dropped without destabilizing the connection.
*/
package realtime
