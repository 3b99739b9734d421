package handler

import (
	"net/http"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// MemberHandler handles membership endpoints.
type MemberHandler struct {
	svc *service.GroupService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(svc *service.GroupService) *MemberHandler {
	return &MemberHandler{svc: svc}
}

// Join adds the acting user to the group.
func (h *MemberHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")

	group, err := h.svc.Join(r.Context(), groupID, user.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// Leave removes the acting user from the group. Leaving revokes moderator
// status; the owner must transfer ownership before leaving.
func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")

	group, err := h.svc.Leave(r.Context(), groupID, user.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// Remove removes another user from the group. Moderator only; the owner
// is protected.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")
	targetID := chi.URLParam(r, "user_id")

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleModerator) {
		return
	}

	group, err := h.svc.RemoveMember(r.Context(), groupID, targetID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}
