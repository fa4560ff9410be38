/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zerolog request logging (middleware.go)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Instrument: Prometheus request metrics
  5. CORS:       Cross-origin requests for browser clients

ROUTE GROUPS:
  /api/config              Active waterfall terms
  /api/lps/*               LP commitments, transactions and waterfalls
  /api/admin/*             CSV import and reset (dev only)
  /metrics                 Prometheus exposition

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(Instrument(h.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", h.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)

		r.Route("/lps", func(r chi.Router) {
			r.Get("/", h.ListLPs)
			r.Post("/", h.CreateLP)
			r.Get("/{id}", h.GetLP)
			r.Post("/{id}/transactions", h.AddTransaction)
			r.Get("/{id}/waterfall", h.GetWaterfall)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/import", h.ImportCSV)
			r.Post("/reset", h.Reset)
		})
	})

	return r
}
