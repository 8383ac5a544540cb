package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/halcyonlabs/authbase/internal/service"
)

// RateLimitConfig describes one guarded endpoint's budget.
type RateLimitConfig struct {
	Endpoint    string
	Action      string // human label for the 429 message
	MaxAttempts int
	Window      time.Duration
}

// RateLimit guards an endpoint with a persisted per-IP attempt counter. The
// counter survives restarts and is shared between instances.
func RateLimit(rateLimitService *service.RateLimitService, cfg RateLimitConfig) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			allowed, err := rateLimitService.Check(ip, cfg.Endpoint, cfg.MaxAttempts, cfg.Window)
			if err != nil {
				// Fail open: a limiter outage should not take auth down
				slog.Error("rate limit check failed", "error", err, "ip", ip, "endpoint", cfg.Endpoint)
				next(w, r)
				return
			}

			if !allowed {
				slog.Warn("rate limit exceeded",
					"ip", ip,
					"endpoint", cfg.Endpoint,
					"path", r.URL.Path,
				)
				deny(w, http.StatusTooManyRequests, service.RetryHint(cfg.Action, cfg.Window))
				return
			}

			next(w, r)
		}
	}
}

// ClientIP extracts the real client IP from the request
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (proxy/load balancer)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take first IP in list
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip := r.RemoteAddr
	// Remove port if present
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}
