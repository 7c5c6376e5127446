package model

import "time"

// Roles recognised by the platform. Anything other than "admin" in the
// provider's role claim is treated as a regular user.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the local projection of an identity held by the external provider.
//
// ExternalID is the provider's stable subject key. Records are materialized
// lazily: the first authenticated write by an unknown identity creates one,
// deriving username/email fallbacks from the provider claims.
type User struct {
	ID         string    `json:"id"         db:"id"`
	ExternalID string    `json:"externalId" db:"external_id"`
	Username   string    `json:"username"   db:"username"`
	Email      string    `json:"email"      db:"email"`
	AvatarURL  string    `json:"avatarUrl"  db:"avatar_url"`
	Role       string    `json:"role"       db:"role"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}
