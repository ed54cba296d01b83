package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"capturehub/backend/internal/auth/domain"
)

const ginAuthKey = "authContext"

// Authenticator is implemented by *Resolver.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*AuthContext, error)
}

// Middleware authenticates every request with a and aborts with 401 on rejection and 500 on a
// store failure. On success the AuthContext is available through GetAuthContext and through
// FromContext on the request context.
func Middleware(a Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := a.Authenticate(c.Request.Context(), FromHTTPRequest(c.Request, cookieName))
		if err != nil {
			if u, ok := domain.AsUnauthorized(err); ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": string(u.Reason), "error_description": u.Reason.Message()})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Authentication is temporarily unavailable."})
			return
		}
		SetAuthContext(c, ac)
		c.Next()
	}
}

// SetAuthContext attaches ac to the gin context and the request context. Handlers call it after
// an organization switch so the rest of the request acts in the new organization.
func SetAuthContext(c *gin.Context, ac *AuthContext) {
	c.Set(ginAuthKey, ac)
	c.Request = c.Request.WithContext(WithAuth(c.Request.Context(), ac))
}

// GetAuthContext extracts the AuthContext from gin.
func GetAuthContext(c *gin.Context) (*AuthContext, bool) {
	value, ok := c.Get(ginAuthKey)
	if !ok {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok && ac != nil
}
