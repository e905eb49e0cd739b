// Package http wires the query API router.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akiftaxi/gatekeeper/internal/auth"
	"github.com/akiftaxi/gatekeeper/internal/config"
	"github.com/akiftaxi/gatekeeper/internal/http/features/messages"
	"github.com/akiftaxi/gatekeeper/internal/http/features/stats"
	"github.com/akiftaxi/gatekeeper/internal/http/middleware"
	"github.com/akiftaxi/gatekeeper/internal/httputil"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	TokenService    *auth.TokenService
	MessagesStore   messages.Store
	StatsStore      stats.Store
	RateLimit       config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	messagesHandler := messages.NewHandler(cfg.Logger, cfg.MessagesStore)
	statsHandler := stats.NewHandler(cfg.Logger, cfg.StatsStore)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit, cfg.Logger))
		r.Use(middleware.Auth(cfg.TokenService))
		r.Get("/api/group-messages", messagesHandler.List)
		r.Get("/api/stats", statsHandler.Get)
	})

	return r
}
