package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"gateguard/internal/infrastructure"
	"gateguard/internal/security"
)

// RequireAdmin gates mutating update endpoints behind a bearer token whose
// scrypt hash is held in configuration. The full role/permission system lives
// outside this module; this guard only covers the update surface.
//
// An empty configured hash disables the endpoints entirely rather than
// leaving them open.
func RequireAdmin(tokenHash string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			deny := func(status int, detail string) {
				logger.WarnContext(ctx, "admin authorization rejected",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(status)
				traceID := infrastructure.GetTraceID(ctx)
				w.Write([]byte(`{"type":"/errors/unauthorized","title":"Unauthorized","status":` +
					statusText(status) + `,"detail":"` + detail + `","trace_id":"` + traceID + `"}`))
			}

			if tokenHash == "" {
				deny(http.StatusForbidden, "Administrative endpoints are not configured")
				return
			}

			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token == "" {
				deny(http.StatusUnauthorized, "Bearer token required")
				return
			}

			if !security.VerifyAdminToken(token, tokenHash) {
				deny(http.StatusUnauthorized, "Invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func statusText(status int) string {
	switch status {
	case http.StatusForbidden:
		return "403"
	default:
		return "401"
	}
}
