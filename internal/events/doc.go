// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package events defines the wire contract with the status backend.

Every frame on the socket is a JSON envelope:

	{"event": "service:status", "payload": {...}}

Inbound envelopes are decoded exactly once, here, into a closed tagged
union (Message). Consumers never parse raw payloads themselves, so the
malformed-message policy (degrade, never fail) is enforced centrally.

The package also carries the in-process bus: decoded messages travel from
the transport to the cache synchronization engine over a Watermill
gochannel Pub/Sub with one topic and one subscriber, preserving the order
the transport yielded the frames.
*/
package events
