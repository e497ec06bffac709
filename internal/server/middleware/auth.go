package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/repik/lavanderia/internal/auth"
)

// Auth requires a valid access token in the Authorization header and stores
// the caller's Session in the request context.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return authenticate(jwtSecret, false)
}

// AuthWebSocket is Auth that also accepts the token in the "token" query
// parameter, since browsers cannot set headers on WebSocket upgrades.
func AuthWebSocket(jwtSecret string) func(http.Handler) http.Handler {
	return authenticate(jwtSecret, true)
}

func authenticate(jwtSecret string, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" && allowQuery {
				tok = r.URL.Query().Get("token")
			}
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "missing credentials")
				return
			}

			ctx, ok := authenticateJWT(r.Context(), tok, jwtSecret)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func authenticateJWT(ctx context.Context, tokenStr, secret string) (context.Context, bool) {
	claims, err := auth.ValidateToken(secret, tokenStr)
	if err != nil || claims.TokenType != auth.TokenTypeAccess {
		return ctx, false
	}

	tenantID, userID, err := claims.IDs()
	if err != nil || !claims.Role.Valid() {
		return ctx, false
	}

	return WithSession(ctx, Session{TenantID: tenantID, UserID: userID, Role: claims.Role}), true
}

// writeError writes the API error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}{OK: false, Message: message})
}
