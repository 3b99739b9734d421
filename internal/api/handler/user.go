package handler

import (
	"net/http"
	"time"

	"github.com/freethub/groups-service/internal/api/middleware"
	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/storage"
	"github.com/freethub/groups-service/internal/validation"
)

// UserHandler handles the user directory. Provisioning requires the
// bootstrap key; the directory itself is readable by any authenticated
// caller.
type UserHandler struct {
	store storage.Storage
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store storage.Storage) *UserHandler {
	return &UserHandler{store: store}
}

// Create provisions a new user. Bootstrap key only.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsBootstrap(r.Context()) {
		respondError(w, http.StatusForbidden, domain.ErrCodeForbidden, "user provisioning requires the bootstrap key")
		return
	}

	var req domain.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		respondValidationError(w, "username", req.Username, err.Error())
		return
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           generateID(),
		Username:     req.Username,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// List lists all users ordered by username.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}
