// Package domain holds the identity resolved for a request and the credential error taxonomy
// shared by the token, session and membership services and the request resolver.
package domain

// Method records which credential produced an AuthContext.
type Method string

const (
	MethodSession Method = "session"
	MethodToken   Method = "token"
)

// AuthContext is the resolved identity attached to an authenticated request.
// Downstream code may trust OrgID and UserID only; SessionID/TokenID are provenance for
// audit and logging and are empty when the other method was used.
type AuthContext struct {
	OrgID     string
	UserID    string
	SessionID string
	TokenID   string
	Method    Method
}

// WithOrg returns a copy of a with OrgID replaced.
func (a AuthContext) WithOrg(orgID string) AuthContext {
	a.OrgID = orgID
	return a
}
