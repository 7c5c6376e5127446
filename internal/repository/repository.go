// Package repository declares the storage interfaces consumed by the service
// layer, plus the filter/sort/page types the query builder produces. Services
// depend on these interfaces only; the sqlite subpackage implements them.
package repository

import (
	"context"
	"time"

	"github.com/syn-press/syn-api/internal/model"
)

// PostFilter narrows a post listing. Zero values mean "no constraint"; all
// set fields apply conjunctively.
type PostFilter struct {
	Category     string
	AuthorID     string
	Search       string    // case-insensitive substring match against title
	FeaturedOnly bool
	CreatedAfter time.Time // zero = no time window (set by the trending sort)
}

// PostSort selects the listing order. Whatever the primary key, the
// implementation must break ties on post id so pages stay disjoint.
type PostSort int

const (
	SortNewest  PostSort = iota // created_at descending (default)
	SortOldest                  // created_at ascending
	SortPopular                 // visit counter descending
)

// Page is a limit/offset window, already clamped by the pagination engine.
type Page struct {
	Limit  int
	Offset int
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// GetBySlug returns the post with its author projection attached.
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	// List returns the filtered page with author projections attached.
	List(ctx context.Context, filter PostFilter, sort PostSort, page Page) ([]model.Post, error)
	// Count counts posts under the same filter List uses, so hasMore is
	// correct when filters are active.
	Count(ctx context.Context, filter PostFilter) (int, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	// SlugExists reports whether slug is taken, ignoring the post with
	// excludeID when non-empty.
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	// IncrementVisit bumps the visit counter; last write wins.
	IncrementVisit(ctx context.Context, slug string) error
}

// UserRepository methods carry a User suffix/prefix so a single storage type
// can implement every repository interface without method collisions.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SavedPostIDs(ctx context.Context, userID string) ([]string, error)
	// ToggleSaved flips whether userID has postID saved; returns the new state.
	ToggleSaved(ctx context.Context, userID, postID string) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	// ListCommentsByPost returns comments newest-first with author projections.
	ListCommentsByPost(ctx context.Context, postID string) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

type SubscriberRepository interface {
	// AddSubscriber stores a subscriber; re-subscribing an email is a no-op.
	AddSubscriber(ctx context.Context, sub *model.Subscriber) error
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
}
