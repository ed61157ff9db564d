package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/randstring/randstring-go/internal/middleware"
)

// RouterConfig carries the handlers and middleware the API is built from.
type RouterConfig struct {
	Logger        zerolog.Logger
	Generator     *GeneratorHandler
	Sessions      *SessionHandler
	SessionSecret string
	RateLimiter   *middleware.IPRateLimiter
}

// NewRouter wires every route of the API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimit(cfg.RateLimiter))
		}
		r.Post("/api/v1/generate", cfg.Generator.HandleGenerate)
		r.Post("/api/v1/sessions", cfg.Sessions.HandleCreate)
	})

	r.Route("/api/v1/session", func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.SessionSecret))

		r.Get("/", cfg.Sessions.HandleGet)
		r.Delete("/", cfg.Sessions.HandleDelete)
		r.Post("/token", cfg.Sessions.HandleRefreshToken)
		r.Post("/generate", cfg.Sessions.HandleGenerate)
		r.Put("/length", cfg.Sessions.HandleSetLength)
		r.Put("/classes/{class}", cfg.Sessions.HandleSetClass)
		r.Put("/auto", cfg.Sessions.HandleSetAuto)
		r.Post("/copy", cfg.Sessions.HandleCopy)
		r.Get("/events", cfg.Sessions.HandleEvents)
	})

	return r
}
