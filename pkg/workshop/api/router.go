// Package api exposes the emulator's item catalog over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// NewRouter assembles the health, metrics and catalog routes. metrics may be
// nil.
func NewRouter(catalog *CatalogHandler, metrics http.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoveryMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Mount("/api/v1/apps/{app_id}", catalog.Routes())
	return r
}
