// Package access derives a caller's identity for a request and resolves
// whose data an operation acts on.
package access

import "fmt"

// Role is the closed set of user roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts only the exact role names. "admin" or "User" are
// rejected rather than normalized.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// Context is the request-scoped identity of the caller.
type Context struct {
	UserID  uint
	Role    Role
	IsAdmin bool
}

func NewContext(userID uint, role Role) Context {
	return Context{
		UserID:  userID,
		Role:    role,
		IsAdmin: role == RoleAdmin,
	}
}

// ResolveEffectiveOwner returns target when an admin supplied one, otherwise
// the caller's own id. A zero target means none was supplied.
func ResolveEffectiveOwner(ac Context, target uint) uint {
	if ac.IsAdmin && target != 0 {
		return target
	}
	return ac.UserID
}
