package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/fleetwatch/internal/api/auth"
	"github.com/good-yellow-bee/fleetwatch/internal/api/respond"
	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

// Context keys for storing user information.
type contextKey string

const (
	userIDKey   contextKey = "user_id"
	userNameKey contextKey = "user_name"
	roleKey     contextKey = "role"
	claimsKey   contextKey = "claims"
)

func jsonUnauthorized(w http.ResponseWriter) {
	respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid or expired token")
}

func jsonForbidden(w http.ResponseWriter) {
	respond.Error(w, http.StatusForbidden, respond.CodeForbidden, "access denied")
}

// JWTAuth returns middleware that validates JWT tokens.
func JWTAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				jsonUnauthorized(w)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				log.Printf("JWT auth failed for %s: %v", r.RemoteAddr, err)
				jsonUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// bearerToken extracts the token from the Authorization header. WebSocket
// clients cannot set headers from the browser, so a token query parameter is
// accepted as a fallback.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// withClaims stores the validated claims in the context.
func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	ctx = context.WithValue(ctx, userNameKey, claims.Name)
	ctx = context.WithValue(ctx, roleKey, claims.Role)
	return context.WithValue(ctx, claimsKey, claims)
}

// GetUserID returns the authenticated user's id from the context.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// GetUserName returns the authenticated user's display name from the context.
func GetUserName(ctx context.Context) string {
	name, _ := ctx.Value(userNameKey).(string)
	return name
}

// GetRole returns the authenticated user's role from the context.
func GetRole(ctx context.Context) models.Role {
	role, _ := ctx.Value(roleKey).(models.Role)
	return role
}

// GetClaims returns the full JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}
