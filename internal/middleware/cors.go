package middleware

import (
	"net/http"
	"strings"
)

// CORS admits the browser extension's origins. Entries may be exact origins
// or a scheme prefix ending in "*" (e.g. "chrome-extension://*").
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	exact := make(map[string]struct{}, len(allowedOrigins))
	var prefixes []string
	for _, origin := range allowedOrigins {
		if strings.HasSuffix(origin, "*") {
			prefixes = append(prefixes, strings.TrimSuffix(origin, "*"))
			continue
		}
		exact[origin] = struct{}{}
	}

	allowed := func(origin string) bool {
		if _, ok := exact[origin]; ok {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(origin, p) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept-Language")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
