package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP allows requestsPerMinute per client IP and answers 429 with
// the JSON body produced by onLimited.
func RateLimitByIP(requestsPerMinute int, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	return httprate.Limit(requestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ClientIP(r), nil
		}),
		httprate.WithLimitHandler(onLimited),
	)
}
