// Package httpapi is the HTTP boundary: routing, the auth gate, request and
// response shapes, and the mapping from domain errors to status codes.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dkolesov/todovault/internal/logging"
)

// NewRouter wires the public and protected route groups.
func NewRouter(users *UserHandler, todos *TodoHandler, gate *AuthGate, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(withRequestLogging(logger))
	r.Use(middleware.AllowContentType("application/json"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", users.Register)
		r.Post("/users/login", users.Login)
		r.Get("/auth/refresh", users.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(gate.Middleware)

			r.Post("/users/logout", users.Logout)
			r.Get("/users/me", users.Me)

			r.Route("/todos", func(r chi.Router) {
				r.Get("/", todos.List)
				r.Post("/", todos.Create)
				r.Get("/{todoID}", todos.Get)
				r.Put("/{todoID}", todos.Update)
				r.Delete("/{todoID}", todos.Delete)
			})
		})
	})

	return r
}
