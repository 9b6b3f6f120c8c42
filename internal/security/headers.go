package security

import (
	"net/http"
	"strconv"
)

// Headers hardens API responses. Every response is JSON for the sales-rep
// UI, never meant to be framed or content-sniffed, and quote payloads carry
// client contact data so shared caches must not store them.
type Headers struct {
	HSTS                  bool
	HSTSMaxAgeSeconds     int
	HSTSIncludeSubdomains bool
}

// Middleware attaches the hardening headers to each response.
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "DENY")
		hdr.Set("Referrer-Policy", "no-referrer")
		hdr.Set("Cache-Control", "no-store")

		if h.HSTS && r.TLS != nil {
			maxAge := h.HSTSMaxAgeSeconds
			if maxAge <= 0 {
				maxAge = 31536000
			}
			value := "max-age=" + strconv.Itoa(maxAge)
			if h.HSTSIncludeSubdomains {
				value += "; includeSubDomains"
			}
			hdr.Set("Strict-Transport-Security", value)
		}

		next.ServeHTTP(w, r)
	})
}
