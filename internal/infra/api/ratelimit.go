package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"creator-monetization/internal/infra/logging"
	red "creator-monetization/internal/infra/redis"
)

// RateLimit caps requests per caller and action. A nil limiter disables it and
// limiter failures let the request through.
func RateLimit(limiter red.Limiter, action string, limit int, window time.Duration, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := logging.UserID(r.Context())
			ok, err := limiter.Allow(r.Context(), red.UserActionKey(userID, action), limit, window)
			if err != nil {
				l := logging.With(r.Context(), logger)
				l.Warn().Err(err).Str("action", action).Msg("rate limiter unavailable")
			} else if !ok {
				w.Header().Set("Retry-After", formatSeconds(window))
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited", Message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
