// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

/*
Package logging provides centralized zerolog-based logging for MediaNest.

All packages in this module log through the global logger configured here:

  - Zero-allocation structured logging via zerolog
  - JSON output for production, console output for development
  - Context-aware logging with correlation ID propagation
  - An slog adapter for libraries that require *slog.Logger (sutureslog)

# Quick Start

	logging.Init(logging.Config{Level: "info", Format: "json"})
	logging.Info().Str("component", "realtime").Msg("connected")
	logging.Ctx(ctx).Warn().Err(err).Msg("probe timed out")

Always terminate log chains with .Msg() or .Send(); an unterminated chain
is silently dropped by zerolog.
*/
package logging
