/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/periods/*    Stored pay periods and their audit reports
  /api/reports      Full-history audit
  /api/trends       Chart data
  /api/ingest       HTML document ingestion
  /api/shadow       Speculative period recording
  /api/reconcile    Lump-sum reconciliation

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Get("/{date}", h.GetPeriod)
			r.Get("/{date}/report", h.GetReport)
		})

		r.Get("/reports", h.ListReports)
		r.Get("/trends", h.GetTrends)

		r.Post("/ingest", h.Ingest)
		r.Post("/shadow", h.RecordShadow)
		r.Post("/reconcile", h.Reconcile)
	})

	return r
}
