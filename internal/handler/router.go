package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"staking-sync/internal/middleware"
	"staking-sync/internal/storage"
)

// Store is what the router needs from persistence.
type Store interface {
	storage.RecordReader
	Pinger
}

// NewRouter mounts the query API and operational endpoints.
func NewRouter(store Store, rec Reconciler, corsOrigin string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(corsOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", Health())
	r.Get("/readyz", Ready(store))

	r.Route("/staking", func(r chi.Router) {
		r.Get("/", ListStaking(store, logger))
		r.Post("/update", UpdateStaking(rec))
		r.Get("/{address}", GetStaking(store, logger))
	})

	return r
}
