package middleware

import (
	"net/http"
	"strings"
)

// EmbedHeaders allows the chat page to be framed by the origins listed in
// frameAncestors (a CSP source list such as "self https://school.example").
func EmbedHeaders(frameAncestors string) func(http.Handler) http.Handler {
	frameAncestors = strings.TrimSpace(frameAncestors)
	if frameAncestors == "" {
		frameAncestors = "'self'"
	}
	csp := "frame-ancestors " + frameAncestors + ";"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "ALLOWALL")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
