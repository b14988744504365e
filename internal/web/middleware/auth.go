package middleware

import (
	"crypto/subtle"
	"net/http"

	"covidfeed/internal/config"
	"covidfeed/internal/logging"
)

// APIKeyAuth returns middleware enforcing the X-API-Key header on the
// routes it wraps. With RequireAPIKey false everything passes through.
// Intended for the mutating routes; the read-only API stays open.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			logger := logging.FromContext(r.Context())

			key := r.Header.Get("X-API-Key")
			if key == "" {
				logger.Warn("auth: missing API key", "path", r.URL.Path, "remote", r.RemoteAddr)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH001")
				return
			}

			if !keyMatches(cfg.APIKeys, key) {
				logger.Warn("auth: invalid API key", "path", r.URL.Path, "remote", r.RemoteAddr)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH002")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// keyMatches compares the candidate against every configured key in
// constant time, always walking the full list.
func keyMatches(keys []string, candidate string) bool {
	valid := 0
	for _, k := range keys {
		valid |= subtle.ConstantTimeCompare([]byte(k), []byte(candidate))
	}
	return valid == 1
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `","code":"` + code + `"}`))
}
