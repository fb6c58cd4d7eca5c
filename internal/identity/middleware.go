package identity

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// RequireAuth rejects requests without a valid bearer token and scopes the
// rest to the token's user. A nil service disables authentication, which
// puts the server in single-user mode.
func RequireAuth(ts *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if ts == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Authorization header required")
				return
			}
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				unauthorized(w, "Invalid Authorization header format")
				return
			}

			userID, err := ts.ParseToken(strings.TrimSpace(tokenStr))
			if err != nil {
				slog.DebugContext(r.Context(), "Rejected bearer token", "error", err)
				unauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="saldo"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
