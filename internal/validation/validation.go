// Package validation provides input validation for group and user fields.
package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxGroupNameLength bounds the trimmed display name of a group.
	MaxGroupNameLength = 64
	// MaxDescriptionLength bounds a group description.
	MaxDescriptionLength = 512
	// MaxUsernameLength bounds a username.
	MaxUsernameLength = 50
)

// ValidateGroupName validates a group's display name. Names must be
// non-empty after trimming, printable, and at most MaxGroupNameLength
// characters. Uniqueness is enforced separately, case-insensitively on the
// trimmed name.
func ValidateGroupName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("group name must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxGroupNameLength {
		return fmt.Errorf("group name must be at most %d characters", MaxGroupNameLength)
	}
	for _, r := range trimmed {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("group name must contain only printable characters")
		}
	}
	return nil
}

// ValidateDescription validates a group description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

// ValidateUsername validates a username: non-empty, at most
// MaxUsernameLength characters, letters, digits, dots, hyphens or
// underscores only.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' && r != '_' {
			return fmt.Errorf("username can only contain letters, digits, dots, hyphens, or underscores")
		}
	}
	return nil
}

// ValidateID validates an opaque entity id supplied by a caller.
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	return nil
}
