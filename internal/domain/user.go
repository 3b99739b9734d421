package domain

import "time"

// User is a directory entry for an account known to the service. Groups
// reference users by id only; passwords and login flows live outside this
// service.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActiveAt time.Time `json:"last_active_at" db:"last_active_at"`
}

// CreateUserRequest is the request body for provisioning a user.
type CreateUserRequest struct {
	Username string `json:"username"`
}
