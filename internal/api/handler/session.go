package handler

import (
	"net/http"
	"time"

	"github.com/freethub/groups-service/internal/api/middleware"
	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/storage"
)

// SessionHandler issues bearer session tokens. Token issuance is a
// provisioning concern (bootstrap key only); login surfaces live outside
// this service.
type SessionHandler struct {
	store    storage.Storage
	duration time.Duration
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store storage.Storage, duration time.Duration) *SessionHandler {
	return &SessionHandler{store: store, duration: duration}
}

// Create issues a session token for a user. The plaintext token is
// returned exactly once.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsBootstrap(r.Context()) {
		respondError(w, http.StatusForbidden, domain.ErrCodeForbidden, "session issuance requires the bootstrap key")
		return
	}

	var req domain.CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondValidationError(w, "user_id", req.UserID, "user_id is required")
		return
	}

	if _, err := h.store.GetUser(r.Context(), req.UserID); err != nil {
		handleError(w, err)
		return
	}

	token, hash, prefix, err := generateToken()
	if err != nil {
		handleError(w, err)
		return
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        generateID(),
		UserID:    req.UserID,
		TokenHash: hash,
		Prefix:    prefix,
		CreatedAt: now,
		ExpiresAt: now.Add(h.duration),
	}

	if err := h.store.CreateSession(r.Context(), session); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, &domain.CreateSessionResponse{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	})
}
