package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/huddle-app/huddle/internal/platform/cache"
)

type rateLimitOptions struct {
	trustProxy bool
}

// RateLimitOption tunes RateLimit.
type RateLimitOption func(*rateLimitOptions)

// TrustForwardedFor keys clients by X-Forwarded-For or X-Real-IP instead of
// the connection address. Only safe behind a proxy that sets those headers.
func TrustForwardedFor() RateLimitOption {
	return func(o *rateLimitOptions) { o.trustProxy = true }
}

// RateLimit allows at most limit requests per client IP per window under
// the given key prefix. Counter failures let the request through.
func RateLimit(counter cache.Counter, prefix string, limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	var o rateLimitOptions
	for _, opt := range opts {
		opt(&o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rl:" + prefix + ":" + clientIP(r, o.trustProxy)
			count, err := counter.IncrWithTTL(r.Context(), key, window)
			if err != nil {
				slog.Warn("rate limit counter unavailable", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
