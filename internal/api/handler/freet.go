package handler

import (
	"net/http"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// FreetHandler handles group freet attachment endpoints. Freet content
// itself is owned by the content collaborator; only the association with
// a group is managed here.
type FreetHandler struct {
	svc *service.GroupService
}

// NewFreetHandler creates a new FreetHandler.
func NewFreetHandler(svc *service.GroupService) *FreetHandler {
	return &FreetHandler{svc: svc}
}

// List returns the freets attached to the group, newest first.
func (h *FreetHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "group_id")

	freets, err := h.svc.ListGroupFreets(r.Context(), groupID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, freets)
}

// Attach associates an existing freet with the group. Member only.
func (h *FreetHandler) Attach(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")

	var req domain.AttachFreetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.FreetID == "" {
		respondValidationError(w, "freet_id", req.FreetID, "freet_id is required")
		return
	}

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleMember) {
		return
	}

	group, err := h.svc.AttachFreet(r.Context(), groupID, req.FreetID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// Detach removes a freet from the group. Moderator only; detaching an
// absent freet is a no-op.
func (h *FreetHandler) Detach(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")
	freetID := chi.URLParam(r, "freet_id")

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleModerator) {
		return
	}

	group, err := h.svc.DetachFreet(r.Context(), groupID, freetID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}
