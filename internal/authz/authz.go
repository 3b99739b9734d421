// Package authz decides whether an acting user may perform a role-gated
// action on a group. The gate is advisory: it never mutates state, and the
// mutation core re-checks its own preconditions so a missed gate call
// cannot corrupt group invariants.
package authz

import (
	"fmt"

	"github.com/freethub/groups-service/internal/domain"
)

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Role    string `json:"role,omitempty"` // effective role when in the group
	Reason  string `json:"reason,omitempty"`
}

// Allow is the positive decision for the given effective role.
func Allow(role domain.Role) Decision {
	return Decision{Allowed: true, Role: role.String()}
}

// Deny is the negative decision with a caller-facing reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Authorize resolves the acting user's effective role in the group and
// allows the action iff that role satisfies the required role. A user not
// in the group is denied at every required level, including member.
func Authorize(g *domain.Group, actingUserID string, required domain.Role) Decision {
	role, ok := g.EffectiveRole(actingUserID)
	if !ok {
		return Deny("not a member of the group")
	}
	if !role.AtLeast(required) {
		return Deny(fmt.Sprintf("requires %s role, user is %s", required, role))
	}
	return Allow(role)
}
