package gateway

import (
	"net/http"

	"github.com/flemzord/warden/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(g.httpStats.middleware)

	// Public, no auth required.
	r.Get("/", g.handleBanner())
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", metrics.Handler(g.registry))

	// Webhooks carry their own per-source credentials.
	r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)

	// Admin endpoints, not mounted if no auth is configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.audit, g.limiter))
			r.Get("/status", g.handleStatus())
			r.Route("/api/violations", func(r chi.Router) {
				r.Get("/", g.handleListViolations())
				r.Get("/{user}", g.handleGetViolations())
				r.Delete("/{user}", g.handleResetViolations())
			})
		})
	}

	return r
}

func (g *Gateway) handleBanner() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(g.config.Banner))
	}
}
