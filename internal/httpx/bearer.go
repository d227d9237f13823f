package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// TokenClaims are the fields this site reads from a backend-issued token.
// The signature is never checked here; the backend remains the authority.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// InspectToken decodes a JWT without verifying it. ok is false when the
// token is not a JWT at all.
func InspectToken(token string) (claims TokenClaims, ok bool) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return TokenClaims{}, false
	}

	if sub, err := mc.GetSubject(); err == nil && sub != "" {
		claims.Subject = sub
	} else if id, ok := mc["id"].(string); ok {
		claims.Subject = id
	}
	if role, ok := mc["role"].(string); ok {
		claims.Role = role
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, true
}

// TokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	claims, ok := InspectToken(token)
	if !ok || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}

// RequireBearer rejects requests without a usable bearer token before they
// reach the backend.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			return
		}
		if TokenExpired(token, time.Now()) {
			JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Token expired", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
