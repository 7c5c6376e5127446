package model

import "time"

// Comment is a reader comment attached to a post.
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	PostID    string    `json:"postId"    db:"post_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Content   string    `json:"content"   db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Author *PostAuthor `json:"author,omitempty" db:"-"`
}
