package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router mounts the archive API under /api/v1 plus /healthz and /metrics.
func Router(h *Handlers, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Archive-Role"},
	}))
	r.Use(RequestLogger(logger))
	r.Use(Metrics())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/items", h.SubmitItem)
		r.Post("/session/category", h.DeclareCategory)

		r.Get("/categories", h.Categories)
		r.Get("/items", h.ListItems)
		r.Get("/items/recent", h.Recent)
		r.Get("/items/{itemID}", h.GetItem)
		r.Get("/favorites", h.Favorites)
		r.Put("/items/{itemID}/favorite", h.SetFavorite)
		r.Get("/search", h.Search)

		r.Delete("/items/{itemID}", h.DeleteItem)
		r.Post("/items/{itemID}/restore", h.RestoreItem)
		r.Get("/trash", h.Trash)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/purge", h.Purge)
			r.Post("/snapshots", h.CreateSnapshot)
			r.Get("/snapshots", h.ListSnapshots)
		})
	})

	return r
}
