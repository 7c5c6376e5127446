// Package model defines the data structures shared across the application layers.
package model

import "time"

// PostAuthor is the denormalized author projection attached to posts and
// comments in API responses. Only display fields — never the full user record.
type PostAuthor struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Post is a published article.
//
// Slug is unique across all posts at any point in time (enforced by a UNIQUE
// index in the storage layer). It is derived from the title on creation and
// recomputed only when the title is edited to a different value.
type Post struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	Slug        string    `json:"slug"        db:"slug"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category"    db:"category"`
	CoverImage  string    `json:"coverImage"  db:"cover_image"` // opaque CDN path
	Content     string    `json:"content"     db:"content"`
	IsFeatured  bool      `json:"isFeatured"  db:"is_featured"`
	Visit       int64     `json:"visit"       db:"visit"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`

	// Author is populated by list/get queries; not a stored column.
	Author *PostAuthor `json:"author,omitempty" db:"-"`
}
