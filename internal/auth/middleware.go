package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// TokenKey is the context key for the raw bearer token of the request.
const TokenKey = contextKey("authToken")

// WithToken returns a copy of ctx carrying the raw token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// TokenFromContext returns the raw token stored by TokenMiddleware, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// TokenMiddleware copies the caller's token into the request context without enforcing it.
// GraphQL operations decide for themselves whether they need an identity.
func TokenMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			// 1. Try to get the token from the Authorization header
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				tokenStr = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			}

			// 2. If not in header, fall back to the cookie
			if tokenStr == "" {
				if cookie, err := r.Cookie("token"); err == nil {
					tokenStr = cookie.Value
				}
			}

			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), tokenStr)))
		})
	}
}
