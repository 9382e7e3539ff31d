// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medianest/medianest/internal/config"
)

// Router assembles the HTTP surface from its handler set.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates the router for the given handler set.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the full route tree with the global middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	// Health and metrics stay outside the rate limit so scrapers and
	// probes cannot starve themselves out.
	r.Get("/healthz", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RequestsPerMinute, requestWindow))
		r.Use(PrometheusMetrics())

		r.Post("/requests", router.handler.SubmitRequest)
		r.Get("/requests/quota", router.handler.RequestQuota)

		r.Get("/connection", router.handler.ConnectionState)
		r.Post("/connection/reconnect", router.handler.Reconnect)

		r.Get("/services", router.handler.Services)
		r.Post("/services/{id}/refresh", router.handler.RefreshService)
	})

	return r
}
