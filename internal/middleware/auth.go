package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/jwt"
	"github.com/driftvault/driftvault/shared/utils"
)

// Key to store the user claims in the request context
type key int

const userClaimsKey key = 0

// Auth verifies the Authorization bearer token and stores the authenticated
// user in the request context.
func Auth(tokens jwt.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "Please sign-in", http.StatusUnauthorized)
				return
			}

			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			user, err := tokens.DecodeAccess(tokenStr)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userClaimsKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext retrieves the authenticated user stored by Auth.
func GetUserFromContext(r *http.Request) *domain.User {
	user, ok := r.Context().Value(userClaimsKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}
