package middleware

import (
	"net/http"
	"strconv"

	"makermate/internal/logging"
	"makermate/internal/ratelimit"
	"makermate/internal/utils"
)

// RateLimit admits at most limit requests per client within the limiter's
// window. Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, limit int) func(http.Handler) http.Handler {
	log := logging.Named("ratelimit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			client := ClientIP(r)
			allowed, remaining, resetAt, err := limiter.AllowWithDetails(r.Context(), client, limit)
			if err != nil {
				log.Warnw("rate limiter unavailable", "client", client, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				utils.RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
