/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/events/*     Event state and derived totals
  /api/estimates/*  Estimate deletion
  /api/bills/*      Bill PDF rendering

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.SaveEvent)
			r.Get("/{id}", h.GetEvent)
			r.Get("/{id}/totals", h.GetTotals)
			r.Post("/{id}/estimate", h.CreateEstimate)
			r.Post("/{id}/bill", h.CreateBill)
		})

		r.Route("/estimates", func(r chi.Router) {
			r.Delete("/{id}", h.DeleteEstimate)
		})

		r.Route("/bills", func(r chi.Router) {
			r.Get("/{id}/pdf", h.GetBillPDF)
		})
	})

	return r
}
