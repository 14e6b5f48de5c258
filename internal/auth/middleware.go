package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/hlog"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Middleware creates a middleware that requires a valid bearer token.
func Middleware(authService *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "authorization header required"})

				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "invalid authorization header format"})

				return
			}

			claims, err := authService.ValidateToken(token)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("rejected bearer token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "invalid token"})

				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext extracts JWT claims from the request context.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)

	return claims, ok && claims != nil
}

// RequirePermission creates a middleware that requires a specific permission.
// It must run after Middleware.
func RequirePermission(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "authentication required"})

				return
			}

			if !GetRole(claims.Role).HasPermission(permission) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, map[string]string{
					"error":      "insufficient permissions",
					"permission": string(permission),
				})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Guard protects a route registered under action with a bearer token
// carrying the matching permission.
func Guard(authService *Service) func(action string, next http.Handler) http.Handler {
	authenticate := Middleware(authService)

	return func(action string, next http.Handler) http.Handler {
		return authenticate(RequirePermission(Permission(action))(next))
	}
}
