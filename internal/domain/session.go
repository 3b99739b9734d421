package domain

import "time"

// Session is a bearer token binding requests to an acting user. Only the
// SHA-256 hash of the token is stored; the prefix is kept for display.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	Prefix    string    `json:"prefix" db:"prefix"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// CreateSessionRequest is the request body for issuing a session token.
type CreateSessionRequest struct {
	UserID string `json:"user_id"`
}

// CreateSessionResponse returns the one-time plaintext token.
type CreateSessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
