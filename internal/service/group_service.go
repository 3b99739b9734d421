// Package service implements the group membership and ownership core. All
// group mutations run under a per-group lock and inside a storage
// transaction, re-establish the group invariants, and are persisted
// all-or-nothing.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/freethub/groups-service/internal/authz"
	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupService owns the group lifecycle, membership policy and the
// ownership transfer protocol.
type GroupService struct {
	store  storage.Storage
	logger *zap.Logger
	locks  *groupLocks
}

// NewGroupService creates a new GroupService.
func NewGroupService(store storage.Storage, logger *zap.Logger) *GroupService {
	return &GroupService{
		store:  store,
		logger: logger,
		locks:  newGroupLocks(),
	}
}

// mutate runs fn against the current state of the group under the
// per-group lock and inside a transaction, verifies the invariants, and
// persists the result. Nothing is committed when fn or the invariant
// check fails.
func (s *GroupService) mutate(ctx context.Context, groupID string, fn func(tx storage.Transaction, g *domain.Group) error) (*domain.Group, error) {
	unlock := s.locks.lock(groupID)
	defer unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	group, err := tx.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := fn(tx, group); err != nil {
		return nil, err
	}
	if err := s.checkInvariants(group); err != nil {
		return nil, err
	}
	if err := tx.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return group, nil
}

// checkInvariants logs invariant faults at error level; these indicate a
// defect in the mutation core, not a user mistake, and must never be
// reported as a validation failure.
func (s *GroupService) checkInvariants(group *domain.Group) error {
	if err := group.CheckInvariants(); err != nil {
		s.logger.Error("group invariant violation",
			zap.String("group_id", group.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// requireUser maps a missing user id to ErrUnknownUser.
func (s *GroupService) requireUser(ctx context.Context, userID string) error {
	ok, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnknownUser
	}
	return nil
}

// CreateGroup creates a group with the creator as sole owner, moderator
// and member. The name must be unique across all groups,
// case-insensitively on the trimmed name.
func (s *GroupService) CreateGroup(ctx context.Context, name, description, creatorID string) (*domain.Group, error) {
	if err := s.requireUser(ctx, creatorID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetGroupByName(ctx, name); err == nil {
		return nil, domain.ErrDuplicateName
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	group := domain.NewGroup(uuid.New().String(), name, description, creatorID)
	if err := s.checkInvariants(group); err != nil {
		return nil, err
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// UpdateGroupInfo renames a group and/or changes its description. The
// caller must already hold the owner role per the authorization gate.
func (s *GroupService) UpdateGroupInfo(ctx context.Context, groupID, name, description string) (*domain.Group, error) {
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		existing, err := tx.GetGroupByName(ctx, name)
		if err == nil && existing.ID != g.ID {
			return domain.ErrDuplicateName
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		g.Name = strings.TrimSpace(name)
		g.Description = description
		return nil
	})
}

// DeleteGroup permanently removes the group and all of its membership and
// freet associations. Deletion is final.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) error {
	unlock := s.locks.lock(groupID)
	defer unlock()
	return s.store.DeleteGroup(ctx, groupID)
}

// Join adds the acting user to the group as a member.
func (s *GroupService) Join(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		if g.IsMember(userID) {
			return domain.ErrAlreadyMember
		}
		g.AddMember(userID)
		return nil
	})
}

// Leave removes the acting user from the group, revoking moderator status
// with it. The owner cannot leave; ownership must be transferred first.
func (s *GroupService) Leave(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		if !g.IsMember(userID) {
			return domain.ErrNotAMember
		}
		if g.IsOwner(userID) {
			return domain.ErrOwnerCannotLeave
		}
		return g.RemoveMember(userID)
	})
}

// RemoveMember removes the target user from the group. Used by moderators
// for moderation removals; the owner is protected.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, targetUserID string) (*domain.Group, error) {
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		return g.RemoveMember(targetUserID)
	})
}

// SetModeratorRole grants or revokes the target's moderator role.
func (s *GroupService) SetModeratorRole(ctx context.Context, groupID, targetUserID string, grant bool) (*domain.Group, error) {
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		if grant {
			return g.PromoteModerator(targetUserID)
		}
		return g.DemoteModerator(targetUserID)
	})
}

// TransferOwnership moves ownership to newOwnerID as one atomic unit. The
// gate verifies the caller is the owner before invocation; the transfer
// re-checks it here so an authorization bug in the caller cannot corrupt
// the single-owner invariant. The previous owner keeps whatever
// membership and moderator status they had.
func (s *GroupService) TransferOwnership(ctx context.Context, groupID, currentOwnerID, newOwnerID string) (*domain.Group, error) {
	if err := s.requireUser(ctx, newOwnerID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		return g.TransferOwnership(currentOwnerID, newOwnerID)
	})
}

// AttachFreet associates an existing freet with the group; idempotent.
func (s *GroupService) AttachFreet(ctx context.Context, groupID, freetID string) (*domain.Group, error) {
	ok, err := s.store.FreetExists(ctx, freetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		g.AttachFreet(freetID)
		return nil
	})
}

// DetachFreet removes a freet association; detaching an absent freet is a
// no-op.
func (s *GroupService) DetachFreet(ctx context.Context, groupID, freetID string) (*domain.Group, error) {
	return s.mutate(ctx, groupID, func(tx storage.Transaction, g *domain.Group) error {
		g.DetachFreet(freetID)
		return nil
	})
}

// Authorize resolves the group and asks the authorization gate whether
// the acting user holds at least the required role in it.
func (s *GroupService) Authorize(ctx context.Context, groupID, actingUserID string, required domain.Role) (authz.Decision, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return authz.Decision{}, err
	}
	return authz.Authorize(group, actingUserID, required), nil
}

// GetGroup returns a group by id.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// GetGroupByName returns a group by name, matched case-insensitively on
// the trimmed name.
func (s *GroupService) GetGroupByName(ctx context.Context, name string) (*domain.Group, error) {
	return s.store.GetGroupByName(ctx, name)
}

// ListGroups returns all groups ordered by name.
func (s *GroupService) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	return s.store.ListGroups(ctx)
}

// ListGroupsForUser returns the groups in which the user holds at least
// minRole, ordered by name.
func (s *GroupService) ListGroupsForUser(ctx context.Context, userID string, minRole domain.Role) ([]*domain.Group, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	filtered := groups[:0]
	for _, g := range groups {
		if role, ok := g.EffectiveRole(userID); ok && role.AtLeast(minRole) {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// ListGroupFreets returns the freets attached to the group, newest first.
func (s *GroupService) ListGroupFreets(ctx context.Context, groupID string) ([]*domain.Freet, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.store.ListFreets(ctx, group.Freets)
}
