package handler

import (
	"net/http"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// OwnerHandler handles the ownership transfer endpoint.
type OwnerHandler struct {
	svc *service.GroupService
}

// NewOwnerHandler creates a new OwnerHandler.
func NewOwnerHandler(svc *service.GroupService) *OwnerHandler {
	return &OwnerHandler{svc: svc}
}

// Transfer moves group ownership to another user. Owner only. The new
// owner is added to the member and moderator sets; the previous owner
// keeps their membership and moderator status.
func (h *OwnerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	user, ok := actingUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "group_id")

	var req domain.TransferOwnershipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.NewOwnerID == "" {
		respondValidationError(w, "new_owner_id", req.NewOwnerID, "new_owner_id is required")
		return
	}

	if !authorize(w, r, h.svc, groupID, user.ID, domain.RoleOwner) {
		return
	}

	group, err := h.svc.TransferOwnership(r.Context(), groupID, user.ID, req.NewOwnerID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}
