package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/repository"
)

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

const postColumns = `p.id, p.user_id, p.slug, p.title, p.description, p.category,
	p.cover_image, p.content, p.is_featured, p.visit, p.created_at, p.updated_at`

// Create inserts a new post. A duplicate slug surfaces as apperror.ErrConflict
// so the service can retry with the next slug candidate.
func (db *DB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, slug, title, description, category,
			cover_image, content, is_featured, visit, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Slug,
		post.Title,
		post.Description,
		post.Category,
		post.CoverImage,
		post.Content,
		post.IsFeatured,
		post.Visit,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "posts.slug") {
			return apperror.Conflict("slug", post.Slug)
		}
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

// GetBySlug returns the post with its author's display fields attached.
func (db *DB) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+`, u.username, u.avatar_url
		 FROM posts p JOIN users u ON u.id = p.user_id
		 WHERE p.slug = ?`, slug)

	var p model.Post
	var author model.PostAuthor
	err := row.Scan(
		&p.ID, &p.UserID, &p.Slug, &p.Title, &p.Description, &p.Category,
		&p.CoverImage, &p.Content, &p.IsFeatured, &p.Visit, &p.CreatedAt, &p.UpdatedAt,
		&author.Username, &author.AvatarURL,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", slug)
		}
		return nil, fmt.Errorf("sqlite: getting post by slug %s: %w", slug, err)
	}
	p.Author = &author
	return &p, nil
}

// buildWhere renders filter into a WHERE clause plus its arguments. All
// constraints are conjunctive.
func buildWhere(filter repository.PostFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Category != "" {
		clauses = append(clauses, "p.category = ?")
		args = append(args, filter.Category)
	}
	if filter.AuthorID != "" {
		clauses = append(clauses, "p.user_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.Search != "" {
		// LIKE is case-insensitive for ASCII in SQLite by default.
		clauses = append(clauses, "p.title LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}
	if filter.FeaturedOnly {
		clauses = append(clauses, "p.is_featured = 1")
	}
	if !filter.CreatedAfter.IsZero() {
		clauses = append(clauses, "p.created_at >= ?")
		args = append(args, filter.CreatedAfter)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike escapes LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

func orderBy(sort repository.PostSort) string {
	// The secondary key keeps ordering total: xid ids are time-ordered, so
	// ties resolve by insertion order and pages never overlap or skip rows.
	switch sort {
	case repository.SortOldest:
		return " ORDER BY p.created_at ASC, p.id ASC"
	case repository.SortPopular:
		return " ORDER BY p.visit DESC, p.id ASC"
	default:
		return " ORDER BY p.created_at DESC, p.id ASC"
	}
}

// List returns one page of posts under filter, ordered by sort, with author
// display fields attached.
func (db *DB) List(ctx context.Context, filter repository.PostFilter, sort repository.PostSort, page repository.Page) ([]model.Post, error) {
	where, args := buildWhere(filter)
	args = append(args, page.Limit, page.Offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+`, u.username, u.avatar_url
		 FROM posts p JOIN users u ON u.id = p.user_id`+
			where+orderBy(sort)+` LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, page.Limit)
	for rows.Next() {
		var p model.Post
		var author model.PostAuthor
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Slug, &p.Title, &p.Description, &p.Category,
			&p.CoverImage, &p.Content, &p.IsFeatured, &p.Visit, &p.CreatedAt, &p.UpdatedAt,
			&author.Username, &author.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		p.Author = &author
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// Count counts posts under the same filter List uses.
func (db *DB) Count(ctx context.Context, filter repository.PostFilter) (int, error) {
	where, args := buildWhere(filter)

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p`+where, args...,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return total, nil
}

// Update persists the mutable fields of a post. id and created_at never change.
// A duplicate slug surfaces as apperror.ErrConflict for the retry loop.
func (db *DB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts
		 SET slug = ?, title = ?, description = ?, category = ?, cover_image = ?,
		     content = ?, is_featured = ?, updated_at = ?
		 WHERE id = ?`,
		post.Slug,
		post.Title,
		post.Description,
		post.Category,
		post.CoverImage,
		post.Content,
		post.IsFeatured,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "posts.slug") {
			return apperror.Conflict("slug", post.Slug)
		}
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

// SlugExists reports whether slug is taken, ignoring the post with excludeID
// when updating.
func (db *DB) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int
	var err error
	if excludeID == "" {
		err = db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM posts WHERE slug = ?`, slug).Scan(&count)
	} else {
		err = db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking slug %s: %w", slug, err)
	}
	return count > 0, nil
}

// IncrementVisit bumps the visit counter in a single statement; concurrent
// bumps never lose each other, and a miss is silently ignored.
func (db *DB) IncrementVisit(ctx context.Context, slug string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET visit = visit + 1 WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing visit for %s: %w", slug, err)
	}
	return nil
}

// scanPost reads a bare post row (no author join).
func scanPost(row *sql.Row) (*model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID, &p.UserID, &p.Slug, &p.Title, &p.Description, &p.Category,
		&p.CoverImage, &p.Content, &p.IsFeatured, &p.Visit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
