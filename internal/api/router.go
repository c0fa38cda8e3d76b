/**
 * @description
 * This file sets up the HTTP router for the enrollment-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// EnrollmentRoutes creates and returns a new router for the enrollment service.
func EnrollmentRoutes(h *EnrollmentHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Enrollment endpoints
		r.Post("/enrollments", h.EnrollHandler)
		r.Get("/enrollments", h.MyEnrollmentsHandler)

		// Payment endpoints
		r.Post("/payments/checkout-session", h.CheckoutSessionHandler)
		r.Post("/payments/verify", h.VerifyPaymentHandler)

		// Administrator endpoints
		r.Group(func(r chi.Router) {
			r.Use(AdminOnly)

			r.Post("/admin/enrollments", h.ManualEnrollHandler)
			r.Get("/admin/stats", h.AdminStatsHandler)
		})
	})

	return r
}
