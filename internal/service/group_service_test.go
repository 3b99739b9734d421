package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/service"
	"github.com/freethub/groups-service/internal/storage/memory"
	"go.uber.org/zap"
)

type fixture struct {
	svc   *service.GroupService
	store *memory.Store
}

func newFixture(t *testing.T, userIDs ...string) *fixture {
	t.Helper()
	store := memory.New()
	for _, id := range userIDs {
		now := time.Now().UTC()
		err := store.CreateUser(context.Background(), &domain.User{
			ID:           id,
			Username:     "user-" + id,
			CreatedAt:    now,
			LastActiveAt: now,
		})
		if err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", id, err)
		}
	}
	return &fixture{
		svc:   service.NewGroupService(store, zap.NewNop()),
		store: store,
	}
}

func (f *fixture) createGroup(t *testing.T, name, creatorID string) *domain.Group {
	t.Helper()
	group, err := f.svc.CreateGroup(context.Background(), name, "", creatorID)
	if err != nil {
		t.Fatalf("CreateGroup(%s) failed: %v", name, err)
	}
	return group
}

func TestCreateGroup(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()

	group, err := f.svc.CreateGroup(ctx, "Hikers", "trail chat", "u1")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.OwnerID != "u1" || !group.IsMember("u1") || !group.IsModerator("u1") {
		t.Error("Expected creator to be sole owner, member and moderator")
	}

	// Duplicate name, case-insensitive and trimmed
	if _, err := f.svc.CreateGroup(ctx, "  hikers ", "", "u1"); !errors.Is(err, domain.ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
}

func TestCreateGroupUnknownCreator(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CreateGroup(context.Background(), "Hikers", "", "ghost"); !errors.Is(err, domain.ErrUnknownUser) {
		t.Errorf("Expected ErrUnknownUser, got %v", err)
	}
}

func TestJoinAndLeave(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")

	joined, err := f.svc.Join(ctx, group.ID, "u2")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if !joined.IsMember("u2") {
		t.Error("Expected u2 to be a member after join")
	}
	if joined.IsModerator("u2") {
		t.Error("Expected join not to grant moderator status")
	}

	// Joining again fails
	if _, err := f.svc.Join(ctx, group.ID, "u2"); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember on second join, got %v", err)
	}

	left, err := f.svc.Leave(ctx, group.ID, "u2")
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if left.IsMember("u2") || left.IsModerator("u2") {
		t.Error("Expected leave to remove membership and moderator status")
	}

	// Leaving again fails
	if _, err := f.svc.Leave(ctx, group.ID, "u2"); !errors.Is(err, domain.ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember, got %v", err)
	}
}

func TestOwnerCannotLeave(t *testing.T) {
	f := newFixture(t, "u1")
	group := f.createGroup(t, "Hikers", "u1")

	if _, err := f.svc.Leave(context.Background(), group.ID, "u1"); !errors.Is(err, domain.ErrOwnerCannotLeave) {
		t.Errorf("Expected ErrOwnerCannotLeave, got %v", err)
	}
}

func TestLeaveRevokesModerator(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")

	if _, err := f.svc.Join(ctx, group.ID, "u2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := f.svc.SetModeratorRole(ctx, group.ID, "u2", true); err != nil {
		t.Fatalf("SetModeratorRole failed: %v", err)
	}

	left, err := f.svc.Leave(ctx, group.ID, "u2")
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if left.IsModerator("u2") {
		t.Error("Expected moderator status to be revoked on leave")
	}
}

func TestRemoveMemberProtectsOwner(t *testing.T) {
	f := newFixture(t, "u1")
	group := f.createGroup(t, "Hikers", "u1")

	if _, err := f.svc.RemoveMember(context.Background(), group.ID, "u1"); !errors.Is(err, domain.ErrCannotRemoveOwner) {
		t.Errorf("Expected ErrCannotRemoveOwner, got %v", err)
	}
}

func TestSetModeratorRole(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")

	// Granting to a non-member fails
	if _, err := f.svc.SetModeratorRole(ctx, group.ID, "u2", true); !errors.Is(err, domain.ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember, got %v", err)
	}

	if _, err := f.svc.Join(ctx, group.ID, "u2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	granted, err := f.svc.SetModeratorRole(ctx, group.ID, "u2", true)
	if err != nil {
		t.Fatalf("SetModeratorRole grant failed: %v", err)
	}
	if !granted.IsModerator("u2") {
		t.Error("Expected u2 to be a moderator")
	}

	revoked, err := f.svc.SetModeratorRole(ctx, group.ID, "u2", false)
	if err != nil {
		t.Fatalf("SetModeratorRole revoke failed: %v", err)
	}
	if revoked.IsModerator("u2") {
		t.Error("Expected moderator status to be revoked")
	}
	if !revoked.IsMember("u2") {
		t.Error("Expected membership to be retained after demotion")
	}

	// The owner cannot be demoted
	if _, err := f.svc.SetModeratorRole(ctx, group.ID, "u1", false); !errors.Is(err, domain.ErrCannotDemoteOwner) {
		t.Errorf("Expected ErrCannotDemoteOwner, got %v", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")

	if _, err := f.svc.Join(ctx, group.ID, "u2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	transferred, err := f.svc.TransferOwnership(ctx, group.ID, "u1", "u2")
	if err != nil {
		t.Fatalf("TransferOwnership failed: %v", err)
	}
	if transferred.OwnerID != "u2" {
		t.Errorf("Expected owner u2, got %s", transferred.OwnerID)
	}
	if !transferred.IsModerator("u2") || !transferred.IsMember("u2") {
		t.Error("Expected new owner to be member and moderator")
	}
	if !transferred.IsMember("u1") || !transferred.IsModerator("u1") {
		t.Error("Expected previous owner to keep membership and moderator status")
	}

	// The transfer is persisted
	reloaded, err := f.svc.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if reloaded.OwnerID != "u2" {
		t.Errorf("Expected persisted owner u2, got %s", reloaded.OwnerID)
	}

	// Stale owner can no longer transfer
	if _, err := f.svc.TransferOwnership(ctx, group.ID, "u1", "u2"); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner for stale owner, got %v", err)
	}
}

func TestTransferOwnershipUnknownUser(t *testing.T) {
	f := newFixture(t, "u1")
	group := f.createGroup(t, "Hikers", "u1")

	if _, err := f.svc.TransferOwnership(context.Background(), group.ID, "u1", "ghost"); !errors.Is(err, domain.ErrUnknownUser) {
		t.Errorf("Expected ErrUnknownUser, got %v", err)
	}
}

func TestUpdateGroupInfo(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")
	f.createGroup(t, "Bikers", "u1")

	// Renaming onto another group's name fails, case-insensitively
	if _, err := f.svc.UpdateGroupInfo(ctx, group.ID, "BIKERS", ""); !errors.Is(err, domain.ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}

	// Keeping its own name while changing the description is fine
	updated, err := f.svc.UpdateGroupInfo(ctx, group.ID, "Hikers", "new description")
	if err != nil {
		t.Fatalf("UpdateGroupInfo failed: %v", err)
	}
	if updated.Description != "new description" {
		t.Errorf("Expected description to change, got %q", updated.Description)
	}

	renamed, err := f.svc.UpdateGroupInfo(ctx, group.ID, "Trail Crew", "")
	if err != nil {
		t.Fatalf("UpdateGroupInfo rename failed: %v", err)
	}
	if renamed.Name != "Trail Crew" {
		t.Errorf("Expected name Trail Crew, got %q", renamed.Name)
	}

	// The old name is free again
	if _, err := f.svc.GetGroupByName(ctx, "hikers"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected old name to be released, got %v", err)
	}
}

func TestDeleteGroup(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")

	if err := f.svc.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	if _, err := f.svc.GetGroup(ctx, group.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected group to be gone by id, got %v", err)
	}
	if _, err := f.svc.GetGroupByName(ctx, "Hikers"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected group to be gone by name, got %v", err)
	}
}

func TestFreetAttachment(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")

	base := time.Now().UTC()
	for i, id := range []string{"f1", "f2"} {
		err := f.store.CreateFreet(ctx, &domain.Freet{
			ID:         id,
			AuthorID:   "u1",
			Content:    "freet " + id,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			ModifiedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateFreet failed: %v", err)
		}
	}

	if _, err := f.svc.AttachFreet(ctx, group.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown freet, got %v", err)
	}

	for _, id := range []string{"f1", "f2", "f1"} { // repeated attach is a no-op
		if _, err := f.svc.AttachFreet(ctx, group.ID, id); err != nil {
			t.Fatalf("AttachFreet(%s) failed: %v", id, err)
		}
	}

	freets, err := f.svc.ListGroupFreets(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListGroupFreets failed: %v", err)
	}
	if len(freets) != 2 {
		t.Fatalf("Expected 2 freets, got %d", len(freets))
	}
	// Newest first
	if freets[0].ID != "f2" || freets[1].ID != "f1" {
		t.Errorf("Expected newest-first order, got %s then %s", freets[0].ID, freets[1].ID)
	}

	if _, err := f.svc.DetachFreet(ctx, group.ID, "f2"); err != nil {
		t.Fatalf("DetachFreet failed: %v", err)
	}
	// Detaching an absent freet is a no-op
	if _, err := f.svc.DetachFreet(ctx, group.ID, "f2"); err != nil {
		t.Fatalf("Expected repeated detach to succeed, got %v", err)
	}

	freets, err = f.svc.ListGroupFreets(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListGroupFreets failed: %v", err)
	}
	if len(freets) != 1 || freets[0].ID != "f1" {
		t.Errorf("Expected only f1 to remain, got %v", freets)
	}
}

func TestListGroupsForUser(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	owned := f.createGroup(t, "Hikers", "u1")
	moderated := f.createGroup(t, "Bikers", "u2")
	joined := f.createGroup(t, "Climbers", "u2")

	if _, err := f.svc.Join(ctx, moderated.ID, "u1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := f.svc.SetModeratorRole(ctx, moderated.ID, "u1", true); err != nil {
		t.Fatalf("SetModeratorRole failed: %v", err)
	}
	if _, err := f.svc.Join(ctx, joined.ID, "u1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	all, err := f.svc.ListGroupsForUser(ctx, "u1", domain.RoleMember)
	if err != nil {
		t.Fatalf("ListGroupsForUser failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 member groups, got %d", len(all))
	}

	mods, err := f.svc.ListGroupsForUser(ctx, "u1", domain.RoleModerator)
	if err != nil {
		t.Fatalf("ListGroupsForUser failed: %v", err)
	}
	if len(mods) != 2 {
		t.Errorf("Expected 2 moderator groups, got %d", len(mods))
	}

	owner, err := f.svc.ListGroupsForUser(ctx, "u1", domain.RoleOwner)
	if err != nil {
		t.Fatalf("ListGroupsForUser failed: %v", err)
	}
	if len(owner) != 1 || owner[0].ID != owned.ID {
		t.Errorf("Expected only the owned group, got %d groups", len(owner))
	}
}

func TestAuthorizeThroughService(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "u1")

	decision, err := f.svc.Authorize(ctx, group.ID, "u1", domain.RoleOwner)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("Expected owner to be allowed, got deny: %s", decision.Reason)
	}

	decision, err = f.svc.Authorize(ctx, group.ID, "u2", domain.RoleMember)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if decision.Allowed {
		t.Error("Expected non-member to be denied")
	}

	if _, err := f.svc.Authorize(ctx, "no-such-group", "u1", domain.RoleMember); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing group, got %v", err)
	}
}

// Concurrent joins on the same group must all land; the per-group lock
// serializes the read-modify-write cycles.
func TestConcurrentJoins(t *testing.T) {
	const joiners = 20

	userIDs := make([]string, 0, joiners+1)
	userIDs = append(userIDs, "owner")
	for i := 0; i < joiners; i++ {
		userIDs = append(userIDs, fmt.Sprintf("u%03d", i))
	}
	f := newFixture(t, userIDs...)
	ctx := context.Background()
	group := f.createGroup(t, "Hikers", "owner")

	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := f.svc.Join(ctx, group.ID, userID); err != nil {
				t.Errorf("Join(%s) failed: %v", userID, err)
			}
		}(fmt.Sprintf("u%03d", i))
	}
	wg.Wait()

	final, err := f.svc.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(final.Members) != joiners+1 {
		t.Errorf("Expected %d members, got %d", joiners+1, len(final.Members))
	}
	if err := final.CheckInvariants(); err != nil {
		t.Errorf("Invariants broken after concurrent joins: %v", err)
	}
}
