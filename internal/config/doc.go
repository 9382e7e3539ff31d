// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package config loads and validates MediaNest configuration from layered
sources: built-in defaults, an optional YAML file, and MEDIANEST_-prefixed
environment variables (highest priority).

	MEDIANEST_BACKEND_URL=https://status.example.org
	MEDIANEST_RATE_LIMIT_LIMIT=20
	MEDIANEST_LOGGING_LEVEL=debug

The backend URL accepts http(s) and is normalized to ws(s) before dialing.
Validation runs after all layers are merged; a config that passes
Validate() will not fail for configuration reasons at runtime.
*/
package config
