package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the auth core.
const (
	ActionSessionLogin       = "session.login"
	ActionSessionLogout      = "session.logout"
	ActionOrganizationSwitch = "organization.switch"
	ActionOrganizationLeave  = "organization.leave"
	ActionMembershipAdd      = "membership.add"
	ActionMembershipRemove   = "membership.remove"
	ActionTokenIssue         = "token.issue"
	ActionTokenRevoke        = "token.revoke"
	// ActionFallbackToToken marks a request whose session cookie was invalid and which was
	// authenticated by its bearer token instead.
	ActionFallbackToToken = "auth.fallback_to_token"
)

// Resources named in audit rows.
const (
	ResourceSession      = "session"
	ResourceOrganization = "organization"
	ResourceMembership   = "membership"
	ResourceToken        = "api_token"
)
