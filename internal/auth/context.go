package auth

import (
	"context"

	"capturehub/backend/internal/auth/domain"
)

// AuthContext and the method values are re-exported so boundary code needs one import.
type AuthContext = domain.AuthContext

const (
	MethodSession = domain.MethodSession
	MethodToken   = domain.MethodToken
)

type contextKey struct{ name string }

var authContextKey = contextKey{"auth_context"}

// WithAuth returns a context carrying ac. Handlers read it back with FromContext.
func WithAuth(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext returns the AuthContext set by the middleware or interceptor and true if set.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(*AuthContext)
	return ac, ok && ac != nil
}

// UserID returns the authenticated user id, or "" if the request is unauthenticated.
func UserID(ctx context.Context) string {
	if ac, ok := FromContext(ctx); ok {
		return ac.UserID
	}
	return ""
}

// OrgID returns the organization the request acts in, or "" if the request is unauthenticated.
func OrgID(ctx context.Context) string {
	if ac, ok := FromContext(ctx); ok {
		return ac.OrgID
	}
	return ""
}
