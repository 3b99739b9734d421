package domain

// Role is a user's privilege level within a group, totally ordered by
// rank: member < moderator < owner. Roles are derived from the group's
// membership sets, never stored on their own.
type Role int

const (
	RoleMember Role = iota
	RoleModerator
	RoleOwner
)

// Rank returns the numeric privilege rank of the role.
func (r Role) Rank() int {
	return int(r)
}

// AtLeast reports whether the role satisfies the required role.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleModerator:
		return "moderator"
	default:
		return "member"
	}
}

// ParseRole parses a wire role name. The zero value (member) is returned
// with ok=false for unknown names.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "member":
		return RoleMember, true
	case "moderator":
		return RoleModerator, true
	case "owner":
		return RoleOwner, true
	}
	return RoleMember, false
}
