package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/repository"
)

// UserService exposes the authenticated user's profile and saved articles.
type UserService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, posts repository.PostRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		posts:  posts,
		logger: logger,
	}
}

// Sync upserts the local user record from fresh provider claims. Called on
// login so username/email/avatar changes at the provider propagate.
func (s *UserService) Sync(ctx context.Context, ident identity.Identity) (*model.User, error) {
	user, err := s.users.GetUserByExternalID(ctx, ident.Key)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		user = &model.User{
			ExternalID: ident.Key,
			Email:      ident.Email,
			Username:   ident.Username,
			AvatarURL:  ident.AvatarURL,
			Role:       string(ident.Role),
		}
		if user.Username == "" {
			user.Username = "user_" + ident.Key
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		s.logger.Info("user created on login",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
	}
	return user, nil
}

// SavedPostIDs returns the ids of the posts the identity has saved. An
// identity with no local record has saved nothing.
func (s *UserService) SavedPostIDs(ctx context.Context, ident identity.Identity) ([]string, error) {
	user, err := s.users.GetUserByExternalID(ctx, ident.Key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("resolving user: %w", err)
	}

	ids, err := s.users.SavedPostIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing saved posts: %w", err)
	}
	return ids, nil
}

// ToggleSaved saves or unsaves a post for the identity, returning the new
// state. The post must exist.
func (s *UserService) ToggleSaved(ctx context.Context, ident identity.Identity, postID string) (bool, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, err
	}

	user, err := s.Sync(ctx, ident)
	if err != nil {
		return false, err
	}

	saved, err := s.users.ToggleSaved(ctx, user.ID, postID)
	if err != nil {
		return false, fmt.Errorf("toggling saved post: %w", err)
	}
	return saved, nil
}
