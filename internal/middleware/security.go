package middleware

import "net/http"

// SecureHeaders adds standard security headers. The design pages under
// /designs/ must stay frameable by the survey client, so X-Frame-Options is
// left to the reverse proxy.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}
