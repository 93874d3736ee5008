// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadline-dev/threadline/internal/middleware"
)

// debugMetricsWindow bounds how many recent requests the in-process
// performance monitor keeps for percentile calculation, independent of
// what Prometheus retains.
const debugMetricsWindow = 1000

// chiMiddleware adapts an http.HandlerFunc middleware shape to chi's
// func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter builds the chi.Mux exposing every route this service serves:
// ingestion, intelligence read, subscribe stream, plus /healthz,
// /debug/performance and /metrics. metricsEnabled gates the /metrics route per
// config.ServerConfig.MetricsEnabled.
func NewRouter(h *Handler, metricsEnabled bool) http.Handler {
	r := chi.NewRouter()
	perfMon := middleware.NewPerformanceMonitor(debugMetricsWindow)

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(middleware.Compression))
	r.Use(perfMon.Middleware)

	r.Get("/healthz", healthz)
	r.Get("/debug/performance", debugPerformance(perfMon))
	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(httprate.LimitByIP(120, time.Minute)).Post("/messages", h.Ingest)
		r.Get("/conversations/{tenant}/{conversation}", h.Intelligence)
		r.Get("/conversations/{tenant}/{conversation}/stream", h.Stream)
	})

	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// debugPerformance exposes the in-process latency percentiles the
// performance monitor tracks, separate from the Prometheus counters
// every other route contributes to.
func debugPerformance(pm *middleware.PerformanceMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, pm.GetStats())
	}
}
