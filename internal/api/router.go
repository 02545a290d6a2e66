package api

import (
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/health", h.HealthHandler)
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		if h.authEnabled {
			r.Use(h.sessions.Middleware)
		}

		// HTML pages; the event stream below must not be buffered by gzip
		r.Group(func(r chi.Router) {
			r.Use(gziphandler.GzipHandler)

			if h.authEnabled {
				r.Get("/register", h.RegisterPage)
				r.Post("/register", h.RegisterHandler)
				r.Get("/verify_otp", h.VerifyOTPPage)
				r.Post("/verify_otp", h.VerifyOTPHandler)
				r.Get("/login", h.LoginPage)
				r.Post("/login", h.LoginHandler)
				r.Get("/logout", h.LogoutHandler)
			}

			r.Group(func(r chi.Router) {
				if h.authEnabled {
					r.Use(h.RequirePageAuth)
				}
				r.Get("/", h.IndexHandler)
			})
		})

		r.Group(func(r chi.Router) {
			if h.authEnabled {
				r.Use(h.RequireAPIAuth)
			}
			r.Get("/stream", h.StreamHandler)
			r.Post("/stream", h.StreamHandler)
		})
	})

	return r
}
