// Package service contains the business logic layer: validation, authorization,
// and orchestration over the repository interfaces. Services accept plain Go
// values plus the request Identity — never HTTP types — and return domain
// errors from apperror for the handler layer to translate.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/query"
	"github.com/syn-press/syn-api/internal/repository"
	"github.com/syn-press/syn-api/internal/slug"
)

// Validation constants.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 500

	// slugRetries bounds how many times a write is retried when the slug
	// unique index rejects a candidate that passed the existence probe
	// (two concurrent creations with the same title).
	slugRetries = 3
)

// PostService implements post listing and the create/edit/delete/feature
// lifecycle.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		logger: logger,
	}
}

// ListParams are the raw listing parameters from the query string.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	Author   string // username, resolved to an internal id here
	Search   string
	Featured bool
	Sort     string
}

// ListResult is the listing response envelope.
type ListResult struct {
	Posts   []model.Post `json:"posts"`
	HasMore bool         `json:"hasMore"`
	Page    int          `json:"page"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
}

// List returns one page of posts under the given filters.
//
// An unknown author username yields an empty envelope, not an error: for a
// list endpoint, "nobody by that name" is a valid zero-result query. The
// total is counted under the same filter as the page, so HasMore stays
// correct with filters active.
func (s *PostService) List(ctx context.Context, p ListParams) (*ListResult, error) {
	page := query.ClampPage(p.Page)
	limit := query.ClampLimit(p.Limit)

	var authorID string
	if p.Author != "" {
		author, err := s.users.GetUserByUsername(ctx, p.Author)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return &ListResult{Posts: []model.Post{}, HasMore: false, Page: page, Total: 0, Limit: limit}, nil
			}
			return nil, fmt.Errorf("resolving author %q: %w", p.Author, err)
		}
		authorID = author.ID
	}

	filter, sort := query.Build(query.Params{
		Category: p.Category,
		AuthorID: authorID,
		Search:   p.Search,
		Featured: p.Featured,
		Sort:     p.Sort,
	}, time.Now())

	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting posts: %w", err)
	}

	offset, hasMore := query.Paginate(page, limit, total)

	posts, err := s.posts.List(ctx, filter, sort, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return &ListResult{
		Posts:   posts,
		HasMore: hasMore,
		Page:    page,
		Total:   total,
		Limit:   limit,
	}, nil
}

// GetBySlug returns a single post and records the visit.
func (s *PostService) GetBySlug(ctx context.Context, slugStr string) (*model.Post, error) {
	if err := s.posts.IncrementVisit(ctx, slugStr); err != nil {
		// a lost visit must not block the read
		s.logger.Warn("failed to record visit",
			slog.String("slug", slugStr),
			slog.String("error", err.Error()),
		)
	}
	return s.posts.GetBySlug(ctx, slugStr)
}

// CreateInput carries the authoring fields for a new post.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	CoverImage  string
	Content     string
}

// Create publishes a new post owned by the requesting identity. The local
// author record is materialized from the identity claims on first write, and
// the slug is derived from the title against the full post set.
func (s *PostService) Create(ctx context.Context, ident identity.Identity, in CreateInput) (*model.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	author, err := s.materializeAuthor(ctx, ident)
	if err != nil {
		return nil, err
	}

	base, err := slug.Make(title)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID:      author.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		CoverImage:  in.CoverImage,
		Content:     in.Content,
	}
	if post.Category == "" {
		post.Category = "general"
	}

	// Candidate resolution and insert race against concurrent creations of
	// the same title; the unique index arbitrates and we re-resolve on loss.
	for attempt := 0; ; attempt++ {
		post.Slug, err = slug.Unique(ctx, s.posts.SlugExists, base, "")
		if err != nil {
			return nil, err
		}

		err = s.posts.Create(ctx, post)
		if err == nil {
			break
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt == slugRetries-1 {
			return nil, fmt.Errorf("creating post: %w", err)
		}
		s.logger.Info("slug candidate lost a race, retrying",
			slog.String("slug", post.Slug),
			slog.Int("attempt", attempt+1),
		)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("slug", post.Slug),
		slog.String("author", author.Username),
	)

	post.Author = &model.PostAuthor{Username: author.Username, AvatarURL: author.AvatarURL}
	return post, nil
}

// UpdateInput is the allow-listed patch for a post edit. Nil means "leave
// unchanged"; anything else the request body carries is ignored.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	CoverImage  *string
	Content     *string
}

// Update edits a post. Only the owning author or an admin may edit. The slug
// is recomputed only when the patch carries a title that actually differs
// from the stored one, excluding the post's own id from the uniqueness check.
func (s *PostService) Update(ctx context.Context, ident identity.Identity, id string, in UpdateInput) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeOwnerOrAdmin(ctx, ident, post, "you can only edit your own posts"); err != nil {
		return nil, err
	}

	titleChanged := false
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title is required")
		}
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		if title != post.Title {
			post.Title = title
			titleChanged = true
		}
	}
	if in.Description != nil {
		if len(*in.Description) > MaxDescriptionLength {
			return nil, apperror.ValidationFailed("description",
				fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
		}
		post.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		post.Category = *in.Category
	}
	if in.CoverImage != nil {
		post.CoverImage = *in.CoverImage
	}
	if in.Content != nil {
		post.Content = *in.Content
	}

	if !titleChanged {
		// editing without changing the title never changes the slug
		if err := s.posts.Update(ctx, post); err != nil {
			return nil, fmt.Errorf("updating post %s: %w", id, err)
		}
		return post, nil
	}

	base, err := slug.Make(post.Title)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		post.Slug, err = slug.Unique(ctx, s.posts.SlugExists, base, post.ID)
		if err != nil {
			return nil, err
		}

		err = s.posts.Update(ctx, post)
		if err == nil {
			break
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt == slugRetries-1 {
			return nil, fmt.Errorf("updating post %s: %w", id, err)
		}
	}

	s.logger.Info("post updated",
		slog.String("id", post.ID),
		slog.String("slug", post.Slug),
	)

	return post, nil
}

// Delete removes a post. Admins may delete any post; everyone else only
// their own. Targeting someone else's post is Forbidden, distinct from a
// missing post which is NotFound.
func (s *PostService) Delete(ctx context.Context, ident identity.Identity, id string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizeOwnerOrAdmin(ctx, ident, post, "you can only delete your own posts"); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting post %s: %w", id, err)
	}

	s.logger.Info("post deleted", slog.String("id", id), slog.String("slug", post.Slug))
	return nil
}

// ToggleFeatured flips the featured flag. Admin only.
func (s *PostService) ToggleFeatured(ctx context.Context, ident identity.Identity, id string) (*model.Post, error) {
	if !ident.IsAdmin() {
		return nil, apperror.Forbidden("only admins can feature posts")
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	post.IsFeatured = !post.IsFeatured
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("toggling featured on post %s: %w", id, err)
	}

	s.logger.Info("post featured flag toggled",
		slog.String("id", id),
		slog.Bool("isFeatured", post.IsFeatured),
	)

	return post, nil
}

// authorizeOwnerOrAdmin checks that ident may mutate post. Admins pass
// unconditionally; others must own it. An identity with no local record
// cannot own anything, so it is forbidden too.
func (s *PostService) authorizeOwnerOrAdmin(ctx context.Context, ident identity.Identity, post *model.Post, message string) error {
	if ident.IsAdmin() {
		return nil
	}

	user, err := s.users.GetUserByExternalID(ctx, ident.Key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Forbidden(message)
		}
		return fmt.Errorf("resolving requester: %w", err)
	}
	if user.ID != post.UserID {
		return apperror.Forbidden(message)
	}
	return nil
}

// materializeAuthor returns the local user for ident, creating it from the
// provider claims on first write. Missing claims degrade gracefully: email
// falls back to a synthetic address on the identity key, username to the
// email local part, then to a suffix of the key.
func (s *PostService) materializeAuthor(ctx context.Context, ident identity.Identity) (*model.User, error) {
	user, err := s.users.GetUserByExternalID(ctx, ident.Key)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up author: %w", err)
	}

	user = &model.User{
		ExternalID: ident.Key,
		Email:      ident.Email,
		Username:   ident.Username,
		AvatarURL:  ident.AvatarURL,
		Role:       string(ident.Role),
	}
	if user.Email == "" {
		user.Email = ident.Key + "@users.noreply.local"
	}
	if user.Username == "" {
		if at := strings.IndexByte(user.Email, '@'); at > 0 {
			user.Username = user.Email[:at]
		}
	}
	if user.Username == "" {
		key := ident.Key
		if len(key) > 6 {
			key = key[len(key)-6:]
		}
		user.Username = "user_" + key
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// a concurrent first write may have created the record already
		if errors.Is(err, apperror.ErrConflict) {
			return s.users.GetUserByExternalID(ctx, ident.Key)
		}
		return nil, fmt.Errorf("materializing author: %w", err)
	}

	s.logger.Info("author materialized",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}
