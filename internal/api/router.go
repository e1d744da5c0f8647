// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/affinitylabs/affinity/internal/config"
	"github.com/affinitylabs/affinity/internal/middleware"
)

// NewRouter builds the HTTP routing tree.
//
// Global middleware applies to every route. Rate limiting and request
// metrics apply only to the scoring endpoints so that health probes and
// scrapes are never throttled.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		MaxAge:         86400,
	}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})

	// Operational endpoints, unthrottled.
	r.Get("/healthz", h.HandleHealth)
	r.Get("/readyz", h.HandleReady)
	r.Handle("/metrics", promhttp.Handler())

	// Scoring endpoints.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Prometheus)
		if !cfg.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		}

		r.Post("/recommend", h.HandleRecommend)
		r.Post("/churn-predict", h.HandleChurnPredict)
		r.Post("/interactions", h.HandleInteraction)

		r.Route("/api/v1/model", func(r chi.Router) {
			r.Get("/status", h.HandleModelStatus)
			r.Post("/reload", h.HandleModelReload)
		})
	})

	return r
}
