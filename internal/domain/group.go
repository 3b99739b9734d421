package domain

import (
	"fmt"
	"strings"
	"time"
)

// Group is a named collection of users and shared freets with
// owner/moderator/member roles.
//
// Invariants, re-established by every mutation primitive and verified by
// CheckInvariants: the owner is always a moderator, every moderator is a
// member, and a group has exactly one owner. Membership sets are stored as
// slices for the wire and the database, but the primitives below keep them
// duplicate-free.
type Group struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Moderators  []string  `json:"moderators" db:"-"` // Stored in separate table
	Members     []string  `json:"members" db:"-"`    // Stored in separate table
	Freets      []string  `json:"freets" db:"-"`     // Stored in separate table
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CreateGroupRequest is the request body for creating a group.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateGroupRequest is the request body for renaming a group or changing
// its description.
type UpdateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SetModeratorRequest is the request body for granting moderator status.
type SetModeratorRequest struct {
	UserID string `json:"user_id"`
}

// TransferOwnershipRequest is the request body for an ownership transfer.
type TransferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

// AttachFreetRequest is the request body for attaching a freet to a group.
type AttachFreetRequest struct {
	FreetID string `json:"freet_id"`
}

// NameKey returns the canonical form of a group name used for uniqueness
// checks: trimmed and lowercased.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewGroup creates a group with the creator as sole owner, moderator and
// member, and no attached freets.
func NewGroup(id, name, description, creatorID string) *Group {
	now := time.Now().UTC()
	return &Group{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: description,
		OwnerID:     creatorID,
		Moderators:  []string{creatorID},
		Members:     []string{creatorID},
		Freets:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// addID adds id to ids unless already present.
func addID(ids []string, id string) []string {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

// removeID removes id from ids; no-op if absent.
func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// IsOwner reports whether userID is the group owner.
func (g *Group) IsOwner(userID string) bool {
	return g.OwnerID == userID
}

// IsModerator reports whether userID is in the moderator set.
func (g *Group) IsModerator(userID string) bool {
	return containsID(g.Moderators, userID)
}

// IsMember reports whether userID is in the member set.
func (g *Group) IsMember(userID string) bool {
	return containsID(g.Members, userID)
}

// EffectiveRole derives the highest role userID holds in the group.
// ok is false when the user is not in the group at all.
func (g *Group) EffectiveRole(userID string) (role Role, ok bool) {
	switch {
	case g.IsOwner(userID):
		return RoleOwner, true
	case g.IsModerator(userID):
		return RoleModerator, true
	case g.IsMember(userID):
		return RoleMember, true
	}
	return RoleMember, false
}

// AddMember adds userID to the member set. Adding an existing member is a
// no-op, not an error. User existence is the caller's responsibility.
func (g *Group) AddMember(userID string) {
	g.Members = addID(g.Members, userID)
}

// RemoveMember removes userID from both the member and moderator sets.
// The owner can never be removed by this path; ownership must move via
// TransferOwnership first.
func (g *Group) RemoveMember(userID string) error {
	if g.IsOwner(userID) {
		return ErrCannotRemoveOwner
	}
	if !g.IsMember(userID) {
		return ErrNotAMember
	}
	g.Members = removeID(g.Members, userID)
	g.Moderators = removeID(g.Moderators, userID)
	return nil
}

// PromoteModerator adds userID to the moderator set. Promoting an existing
// moderator is a no-op.
func (g *Group) PromoteModerator(userID string) error {
	if !g.IsMember(userID) {
		return ErrNotAMember
	}
	g.Moderators = addID(g.Moderators, userID)
	return nil
}

// DemoteModerator removes userID from the moderator set only; membership
// is retained. The owner cannot be demoted.
func (g *Group) DemoteModerator(userID string) error {
	if g.IsOwner(userID) {
		return ErrCannotDemoteOwner
	}
	if !g.IsModerator(userID) {
		return ErrNotAModerator
	}
	g.Moderators = removeID(g.Moderators, userID)
	return nil
}

// TransferOwnership makes newOwnerID the owner and force-adds them to the
// member and moderator sets. The previous owner's membership and moderator
// status are left unchanged.
func (g *Group) TransferOwnership(currentOwnerID, newOwnerID string) error {
	if !g.IsOwner(currentOwnerID) {
		return ErrNotOwner
	}
	g.OwnerID = newOwnerID
	g.Members = addID(g.Members, newOwnerID)
	g.Moderators = addID(g.Moderators, newOwnerID)
	return nil
}

// AttachFreet adds a freet reference; idempotent.
func (g *Group) AttachFreet(freetID string) {
	g.Freets = addID(g.Freets, freetID)
}

// DetachFreet removes a freet reference; detaching an absent id is a no-op.
func (g *Group) DetachFreet(freetID string) {
	g.Freets = removeID(g.Freets, freetID)
}

// CheckInvariants verifies the structural invariants of the group. A
// non-nil error wraps ErrInvariantViolation and means a mutation path
// bypassed the primitives above; it is a programming fault, not a user
// error.
func (g *Group) CheckInvariants() error {
	if g.OwnerID == "" {
		return fmt.Errorf("%w: group %s has no owner", ErrInvariantViolation, g.ID)
	}
	if NameKey(g.Name) == "" {
		return fmt.Errorf("%w: group %s has an empty name", ErrInvariantViolation, g.ID)
	}
	if !containsID(g.Moderators, g.OwnerID) {
		return fmt.Errorf("%w: owner %s of group %s is not a moderator", ErrInvariantViolation, g.OwnerID, g.ID)
	}
	for _, m := range g.Moderators {
		if !containsID(g.Members, m) {
			return fmt.Errorf("%w: moderator %s of group %s is not a member", ErrInvariantViolation, m, g.ID)
		}
	}
	if err := checkNoDuplicates(g.Members, "members", g.ID); err != nil {
		return err
	}
	if err := checkNoDuplicates(g.Moderators, "moderators", g.ID); err != nil {
		return err
	}
	return checkNoDuplicates(g.Freets, "freets", g.ID)
}

func checkNoDuplicates(ids []string, field, groupID string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %s in %s of group %s", ErrInvariantViolation, id, field, groupID)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	out := *g
	out.Moderators = append([]string(nil), g.Moderators...)
	out.Members = append([]string(nil), g.Members...)
	out.Freets = append([]string(nil), g.Freets...)
	return &out
}
