/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, included in 500 log lines
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/students/*       Student catalog
  /api/modules/*        Module catalog
  /api/registrations/*  Enrollments and balances
  /api/payments/*       Payments
  /healthz              Liveness and database check

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured. With no
// origins, DefaultAllowedOrigins is used.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
		})

		r.Route("/modules", func(r chi.Router) {
			r.Get("/", h.ListModules)
			r.Post("/", h.CreateModule)
			r.Get("/{id}", h.GetModule)
			r.Put("/{id}", h.UpdateModule)
			r.Delete("/{id}", h.DeleteModule)
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", h.ListRegistrations)
			r.Post("/", h.CreateRegistration)
			r.Get("/{id}", h.GetRegistration)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/payments", h.ListRegistrationPayments)
			r.Put("/{id}", h.UpdateRegistration)
			r.Delete("/{id}", h.DeleteRegistration)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Get("/{paymentId}", h.GetPayment)
			r.Put("/{paymentId}", h.UpdatePayment)
			r.Delete("/{paymentId}", h.DeletePayment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})

	return r
}
