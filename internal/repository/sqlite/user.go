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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, external_id, username, email, avatar_url, role, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, external_id, username, email, avatar_url, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ExternalID,
		user.Username,
		user.Email,
		user.AvatarURL,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.external_id") {
			return apperror.Conflict("user", user.ExternalID)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (db *DB) getUser(ctx context.Context, query, key string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx, query, key).Scan(
		&u.ID, &u.ExternalID, &u.Username, &u.Email, &u.AvatarURL, &u.Role,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}
	return &u, nil
}

// SavedPostIDs returns the ids of posts the user has saved, newest save first.
func (db *DB) SavedPostIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT post_id FROM saved_posts WHERE user_id = ? ORDER BY saved_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing saved posts for %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning saved post id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating saved posts: %w", err)
	}

	return ids, nil
}

// ToggleSaved saves the post for the user, or removes it if already saved.
// Returns the resulting state (true = now saved).
func (db *DB) ToggleSaved(ctx context.Context, userID, postID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM saved_posts WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: unsaving post %s: %w", postID, err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if removed > 0 {
		return false, nil
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO saved_posts (user_id, post_id, saved_at) VALUES (?, ?, ?)`,
		userID, postID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: saving post %s: %w", postID, err)
	}
	return true, nil
}
