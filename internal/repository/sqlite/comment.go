package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/repository"
)

// compile-time check that *DB implements repository.CommentRepository
var _ repository.CommentRepository = (*DB)(nil)

func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, user_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.UserID,
		comment.Content,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}

	return nil
}

func (db *DB) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, post_id, user_id, content, created_at FROM comments WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return &c, nil
}

// ListCommentsByPost returns a post's comments newest-first with the author's
// display fields attached.
func (db *DB) ListCommentsByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
		        u.username, u.avatar_url
		 FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = ?
		 ORDER BY c.created_at DESC, c.id DESC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		var author model.PostAuthor
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt,
			&author.Username, &author.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		c.Author = &author
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", id)
	}

	return nil
}
