// Package fragments serves the dashboard as HTML fragments: list areas, the
// herd table and form status elements, swapped in place by the pages.
package fragments

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the fragment routes.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServerFS(AssetsFS())))

	r.Get("/lists/{name}", h.List)
	r.Post("/lists/{name}/rows/{id}/validate", h.Validate)

	r.Get("/herd", h.Herd)

	r.Route("/forms/{id}", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/status", h.Status)
	})

	return r
}
