package middleware

import (
	"net/http"
	"strings"
)

// corsHeaders are applied to every allowed cross-origin request. The
// ledger API is browser-facing (the dashboard runs on a separate origin),
// so preflights must cover the auth headers and the PATCH verb.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Methods": "GET, POST, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization, X-API-Key",
	"Access-Control-Max-Age":       "86400",
}

// CORS returns middleware that answers cross-origin requests from the
// allowed origins. An empty list allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && originAllowed(origin, allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				for k, v := range corsHeaders {
					w.Header().Set(k, v)
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
