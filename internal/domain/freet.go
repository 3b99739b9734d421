package domain

import "time"

// Freet is a content item that can be attached to groups. This service
// never edits freet content; rows are written by the content collaborator
// (or test fixtures) and read here for presentation only.
type Freet struct {
	ID         string    `json:"id" db:"id"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ModifiedAt time.Time `json:"modified_at" db:"modified_at"`
}
