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
  4. CORS:       Cross-origin requests for the mobile client shell

ROUTE GROUPS:
  /api/sessions/*       Live distance tracking
  /api/trips/*          Trip history and duplicate checks
  /api/perdiem/*        Per-diem eligibility
  /api/cost-centers/*   Cost center suggestions
  /api/base-address/*   Base address detection

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/{employeeID}", h.GetSession)
			r.Post("/{employeeID}/samples", h.FeedSample)
			r.Post("/{employeeID}/stop", h.StopSession)
			r.Post("/{employeeID}/cancel", h.CancelSession)
		})

		// Trip routes
		r.Route("/trips", func(r chi.Router) {
			r.Get("/", h.ListTrips)
			r.Post("/", h.CreateTrip)
			r.Post("/duplicate-check", h.CheckDuplicate)
		})

		// Per-diem routes
		r.Route("/perdiem", func(r chi.Router) {
			r.Post("/day", h.EvaluateDay)
			r.Get("/month", h.EvaluateMonth)
		})

		// Cost center routes
		r.Route("/cost-centers", func(r chi.Router) {
			r.Post("/suggest", h.SuggestCostCenter)
			r.Post("/used", h.RecordCostCenterUse)
		})

		// Base address routes
		r.Route("/base-address", func(r chi.Router) {
			r.Get("/suggestion", h.BaseAddressSuggestion)
			r.Post("/prompted", h.RecordPrompt)
		})
	})

	return r
}
