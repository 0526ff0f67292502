package http

import (
	"log/slog"
	"net/http"

	"notechat/internal/contextutil"
)

// LoggerMiddleware attaches a request-scoped structured logger to the
// context so handlers log with the method, path and caller attached.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default().With(
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r.WithContext(contextutil.WithLogger(r.Context(), logger)))
	})
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Methods": "GET, POST, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization",
	"Access-Control-Max-Age":       "3600",
}

// CORS allows the local chat UI to call the API from another origin.
// Preflight requests are answered here and never reach the router.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowOrigin := "*"
		if origin := r.Header.Get("Origin"); origin != "" {
			allowOrigin = origin
		}
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		for name, value := range corsHeaders {
			w.Header().Set(name, value)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
