package handler

import (
	"net/http"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/service"
	"github.com/freethub/groups-service/internal/validation"
	"github.com/go-chi/chi/v5"
)

// GroupHandler handles group lifecycle endpoints.
type GroupHandler struct {
	svc *service.GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// Create creates a new group owned by the acting user.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req domain.CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	if err := validation.ValidateGroupName(req.Name); err != nil {
		respondValidationError(w, "name", req.Name, err.Error())
		return
	}
	if err := validation.ValidateDescription(req.Description); err != nil {
		respondValidationError(w, "description", req.Description, err.Error())
		return
	}

	group, err := h.svc.CreateGroup(r.Context(), req.Name, req.Description, user.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, group)
}

// List lists all groups, or looks one up with the name query parameter.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		group, err := h.svc.GetGroupByName(r.Context(), name)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, group)
		return
	}

	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, groups)
}

// ListMember lists the groups the acting user belongs to, optionally
// filtered to those where the user holds at least the role query
// parameter.
func (h *GroupHandler) ListMember(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}

	minRole := domain.RoleMember
	if roleParam := r.URL.Query().Get("role"); roleParam != "" {
		parsed, ok := domain.ParseRole(roleParam)
		if !ok {
			respondValidationError(w, "role", roleParam, "must be one of member, moderator, owner")
			return
		}
		minRole = parsed
	}

	groups, err := h.svc.ListGroupsForUser(r.Context(), user.ID, minRole)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, groups)
}

// Get gets a group by id.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "group_id")

	group, err := h.svc.GetGroup(r.Context(), groupID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// Update renames a group or changes its description. Owner only.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")

	var req domain.UpdateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	if err := validation.ValidateGroupName(req.Name); err != nil {
		respondValidationError(w, "name", req.Name, err.Error())
		return
	}
	if err := validation.ValidateDescription(req.Description); err != nil {
		respondValidationError(w, "description", req.Description, err.Error())
		return
	}

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleOwner) {
		return
	}

	group, err := h.svc.UpdateGroupInfo(r.Context(), groupID, req.Name, req.Description)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// Delete deletes a group permanently. Owner only.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleOwner) {
		return
	}

	if err := h.svc.DeleteGroup(r.Context(), groupID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
