package domain

import "errors"

// Common errors used throughout the application.
//
// Validation errors are caller-correctable. Protected-state errors guard
// the single-owner invariant. ErrInvariantViolation indicates a defect in
// the mutation core itself and is never expected from valid call sequences.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid session token")

	ErrDuplicateName = errors.New("group name already in use")
	ErrUnknownUser   = errors.New("unknown user")
	ErrNotAMember    = errors.New("not a member of the group")
	ErrNotAModerator = errors.New("not a moderator of the group")
	ErrAlreadyMember = errors.New("already a member of the group")

	ErrCannotRemoveOwner = errors.New("cannot remove the group owner")
	ErrCannotDemoteOwner = errors.New("cannot demote the group owner")
	ErrOwnerCannotLeave  = errors.New("the group owner cannot leave")
	ErrNotOwner          = errors.New("not the group owner")

	ErrInvariantViolation = errors.New("group invariant violation")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodeDuplicateName    = "DUPLICATE_NAME"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeUnknownUser      = "UNKNOWN_USER"
	ErrCodeNotAMember       = "NOT_A_MEMBER"
	ErrCodeNotAModerator    = "NOT_A_MODERATOR"
	ErrCodeAlreadyMember    = "ALREADY_MEMBER"
	ErrCodeOwnerProtected   = "OWNER_PROTECTED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	ErrCode string `json:"error_code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
