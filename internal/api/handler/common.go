package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/freethub/groups-service/internal/api/middleware"
	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/service"
	"github.com/freethub/groups-service/internal/validation"
	"github.com/google/uuid"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, errCode, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		ErrCode: errCode,
		Message: message,
	})
}

// handleError converts domain errors to HTTP errors. Invariant faults map
// to 500; they are a defect in this service, never a user mistake.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found")
	case errors.Is(err, domain.ErrUnknownUser):
		respondError(w, http.StatusNotFound, domain.ErrCodeUnknownUser, err.Error())
	case errors.Is(err, domain.ErrDuplicateName):
		respondError(w, http.StatusConflict, domain.ErrCodeDuplicateName, err.Error())
	case errors.Is(err, domain.ErrAlreadyMember):
		respondError(w, http.StatusConflict, domain.ErrCodeAlreadyMember, err.Error())
	case errors.Is(err, domain.ErrNotAMember):
		respondError(w, http.StatusConflict, domain.ErrCodeNotAMember, err.Error())
	case errors.Is(err, domain.ErrNotAModerator):
		respondError(w, http.StatusConflict, domain.ErrCodeNotAModerator, err.Error())
	case errors.Is(err, domain.ErrCannotRemoveOwner),
		errors.Is(err, domain.ErrCannotDemoteOwner),
		errors.Is(err, domain.ErrOwnerCannotLeave):
		respondError(w, http.StatusConflict, domain.ErrCodeOwnerProtected, err.Error())
	case errors.Is(err, domain.ErrNotOwner):
		respondError(w, http.StatusForbidden, domain.ErrCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, domain.ErrCodeForbidden, "forbidden")
	default:
		respondError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// generateID generates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// generateToken generates a new random session token. Only the SHA-256
// hash is persisted; the prefix is kept for display.
func generateToken() (token string, hash string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}

	token = "gs_" + hex.EncodeToString(bytes)
	hash = middleware.HashToken(token)
	prefix = token[:12] // "gs_" + first 9 chars of hex

	return token, hash, prefix, nil
}

// actingUser resolves the acting user for a group operation, rejecting
// bootstrap-authenticated requests, which carry no user identity.
func actingUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user := middleware.ActingUser(r.Context())
	if user == nil {
		respondError(w, http.StatusForbidden, domain.ErrCodeForbidden, "a user session is required")
		return nil, false
	}
	return user, true
}

// authorize asks the authorization gate whether the acting user holds at
// least the required role in the group, writing the Deny response itself.
// The service layer still re-checks operation-specific preconditions.
func authorize(w http.ResponseWriter, r *http.Request, svc *service.GroupService, groupID, actingUserID string, required domain.Role) bool {
	decision, err := svc.Authorize(r.Context(), groupID, actingUserID, required)
	if err != nil {
		handleError(w, err)
		return false
	}
	if !decision.Allowed {
		respondError(w, http.StatusForbidden, domain.ErrCodeForbidden, decision.Reason)
		return false
	}
	return true
}

// respondValidationError writes a JSON validation error response.
func respondValidationError(w http.ResponseWriter, field, value, message string) {
	respondJSON(w, http.StatusBadRequest, &validation.FieldError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}
