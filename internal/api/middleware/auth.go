package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/common/security"
	"github.com/BytePitApp/bytepit-api/internal/platform/logger"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
)

// AccessTokenCookie is the cookie set on login.
const AccessTokenCookie = "access_token"

// Verifier looks for a token in the Authorization header, then in the
// access_token cookie, and stores the verification result in the context.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, tokenFromAccessCookie)
}

func tokenFromAccessCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Authenticator rejects requests without a valid token and puts the caller's
// id and role on the context.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			common.RespondWithDomainError(w, fmt.Errorf("authorization token required: %w", common.ErrUnauthorized))
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithDomainError(w, fmt.Errorf("invalid token claims: %w", common.ErrUnauthorized))
			return
		}
		userRole, err := security.GetUserRoleFromClaims(claims)
		if err != nil {
			common.RespondWithDomainError(w, fmt.Errorf("invalid token claims: %w", common.ErrUnauthorized))
			return
		}

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		ctx = context.WithValue(ctx, UserRoleCtxKey, userRole)
		ctx = logger.WithUserID(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after Authenticator.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRoleFromContext(r.Context())
			if !ok || !slices.Contains(roles, role) {
				common.RespondWithDomainError(w, fmt.Errorf("requires role %v: %w", roles, common.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Helper to get user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

// Helper to get user role from context
func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	userRole, ok := ctx.Value(UserRoleCtxKey).(string)
	return userRole, ok
}
