package domain

import (
	"errors"
	"time"
)

// Membership links a user to an organization with a role.
type Membership struct {
	ID            string
	UserID        string
	OrgID         string
	Role          Role
	IsPersonalOrg bool // set only on the membership created at signup; never deletable
	JoinedAt      time.Time
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// IsPrivileged reports whether r can manage the organization (owner or admin).
func (r Role) IsPrivileged() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Authorization errors returned by the membership service. All are 4xx at the boundary.
var (
	ErrNotMember              = errors.New("user is not a member of this organization")
	ErrCannotLeavePersonalOrg = errors.New("cannot leave personal organization")
	ErrLastAdmin              = errors.New("organization must keep at least one owner or admin")
	ErrCannotRemoveSelf       = errors.New("cannot remove yourself; leave the organization instead")
	ErrInsufficientRole       = errors.New("organization admin or owner required")
	ErrAlreadyMember          = errors.New("user is already a member of this organization")
	ErrInvalidRole            = errors.New("invalid role")
)

// DeleteGuard decides, inside the store's atomic section, whether target may be deleted.
// target is nil when no membership row exists; privileged is the number of owner/admin
// rows in the organization at that moment, target included.
type DeleteGuard func(target *Membership, privileged int64) error

// LeaveGuard is the rule for a member leaving or being removed: the row must exist, must not
// be a personal org, and must not be the org's last privileged member.
func LeaveGuard(target *Membership, privileged int64) error {
	if target == nil {
		return ErrNotMember
	}
	if target.IsPersonalOrg {
		return ErrCannotLeavePersonalOrg
	}
	if target.Role.IsPrivileged() && privileged <= 1 {
		return ErrLastAdmin
	}
	return nil
}
