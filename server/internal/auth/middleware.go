package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKey returns HTTP middleware that enforces API key authentication on every
// request.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests are allowed (pass-through).
//   - Otherwise the middleware reads header from the request and compares it
//     to key in constant time.
//   - A missing, empty, or incorrect key is answered with 401.
//
// WebSocket clients that cannot set headers may pass the key as the api_key
// query parameter instead.
func APIKey(mode, header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if mode != "apikey" || key == "" {
			return next
		}
		want := []byte(key)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" {
				got = r.URL.Query().Get("api_key")
			}
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid api key"}` + "\n")) //nolint:errcheck
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
