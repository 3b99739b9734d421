package handler

import (
	"net/http"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// ModeratorHandler handles moderator roster endpoints.
type ModeratorHandler struct {
	svc *service.GroupService
}

// NewModeratorHandler creates a new ModeratorHandler.
func NewModeratorHandler(svc *service.GroupService) *ModeratorHandler {
	return &ModeratorHandler{svc: svc}
}

// List returns the moderator roster of the group.
func (h *ModeratorHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "group_id")

	group, err := h.svc.GetGroup(r.Context(), groupID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"moderators": group.Moderators,
	})
}

// Grant promotes a member to moderator. Owner only.
func (h *ModeratorHandler) Grant(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")

	var req domain.SetModeratorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondValidationError(w, "user_id", req.UserID, "user_id is required")
		return
	}

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleOwner) {
		return
	}

	group, err := h.svc.SetModeratorRole(r.Context(), groupID, req.UserID, true)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// Revoke demotes a moderator back to regular member. Owner only; the
// owner cannot be demoted.
func (h *ModeratorHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")
	targetID := chi.URLParam(r, "user_id")

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleOwner) {
		return
	}

	group, err := h.svc.SetModeratorRole(r.Context(), groupID, targetID, false)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}
