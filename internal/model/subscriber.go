package model

import "time"

// Subscriber is a newsletter recipient. Email is unique; re-subscribing is a
// no-op rather than an error.
type Subscriber struct {
	ID        string    `json:"id"        db:"id"`
	Email     string    `json:"email"     db:"email"`
	Name      string    `json:"name"      db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
