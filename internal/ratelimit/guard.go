package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mebleko/backend-oferta/internal/common"
)

// Guard fences a single route behind a sliding window. The submit endpoint
// uses it keyed by editing-session id. Redis being unreachable never blocks
// the request; the error is reported and the request proceeds.
type Guard struct {
	Counter Sliding
	Key     func(*http.Request) string
	Window  time.Duration
	Max     int
	OnError func(error)
}

// Middleware enforces the window before delegating to the next handler.
func (g Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := g.Counter.Take(r.Context(), g.Key(r), g.Window, g.Max)
		if err != nil {
			if g.OnError != nil {
				g.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := g.Max
		if limit < 0 {
			limit = 0
		}
		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			hdr.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many submission attempts, try again later", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
