package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/httprate"

	"github.com/akiftaxi/gatekeeper/internal/config"
	"github.com/akiftaxi/gatekeeper/internal/httputil"
)

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg config.RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if logger != nil {
				logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}
