package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/repository"
)

const MaxCommentLength = 2000

// CommentService manages reader comments on posts.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		logger:   logger,
	}
}

// ListByPost returns a post's comments, newest first.
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	comments, err := s.comments.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}

// Create adds a comment by the requesting identity, materializing the local
// user record if needed.
func (s *CommentService) Create(ctx context.Context, ident identity.Identity, postID, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "comment content is required")
	}
	if len(content) > MaxCommentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	// verify the post exists before attaching anything to it
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByExternalID(ctx, ident.Key)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("resolving commenter: %w", err)
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
			return nil, fmt.Errorf("materializing commenter: %w", err)
		}
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  user.ID,
		Content: content,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("postID", postID),
	)

	comment.Author = &model.PostAuthor{Username: user.Username, AvatarURL: user.AvatarURL}
	return comment, nil
}

// Delete removes a comment. Admins may delete any; others only their own.
func (s *CommentService) Delete(ctx context.Context, ident identity.Identity, id string) error {
	comment, err := s.comments.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}

	if !ident.IsAdmin() {
		user, err := s.users.GetUserByExternalID(ctx, ident.Key)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.Forbidden("you can only delete your own comments")
			}
			return fmt.Errorf("resolving requester: %w", err)
		}
		if user.ID != comment.UserID {
			return apperror.Forbidden("you can only delete your own comments")
		}
	}

	if err := s.comments.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}

	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}
