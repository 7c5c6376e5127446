package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, externalID, username string) *model.User {
	t.Helper()
	u := &model.User{
		ExternalID: externalID,
		Username:   username,
		Email:      username + "@example.com",
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func seedPost(t *testing.T, db *DB, userID, slug, title, category string) *model.Post {
	t.Helper()
	p := &model.Post{
		UserID:   userID,
		Slug:     slug,
		Title:    title,
		Category: category,
	}
	require.NoError(t, db.Create(context.Background(), p))
	return p
}

func TestCreateAndGetBySlug(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "ext-1", "alice")

	post := seedPost(t, db, user.ID, "cafe-codigo", "Café & Código!", "tech")
	assert.NotEmpty(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())

	got, err := db.GetBySlug(ctx, "cafe-codigo")
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	require.NotNil(t, got.Author)
	assert.Equal(t, "alice", got.Author.Username)

	_, err = db.GetBySlug(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestCreateDuplicateSlugIsConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "ext-1", "alice")

	seedPost(t, db, user.ID, "cafe-codigo", "Café & Código!", "tech")

	dup := &model.Post{UserID: user.ID, Slug: "cafe-codigo", Title: "Café & Código!"}
	err := db.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict),
		"a duplicate slug must surface as a conflict so the caller can retry")
}

func TestSlugExists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "ext-1", "alice")
	post := seedPost(t, db, user.ID, "story", "Story", "news")

	taken, err := db.SlugExists(ctx, "story", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = db.SlugExists(ctx, "story", post.ID)
	require.NoError(t, err)
	assert.False(t, taken, "a post's own slug is free when its id is excluded")

	taken, err = db.SlugExists(ctx, "story-2", "")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestListFiltersAndSorts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "ext-1", "alice")
	bob := seedUser(t, db, "ext-2", "bob")

	mk := func(owner *model.User, slug, title, category string, visit int64, featured bool, age time.Duration) *model.Post {
		p := seedPost(t, db, owner.ID, slug, title, category)
		p.IsFeatured = featured
		require.NoError(t, db.Update(ctx, p))
		// backdate and set visits directly; Create always stamps "now"
		_, err := db.conn.ExecContext(ctx,
			`UPDATE posts SET created_at = ?, visit = ? WHERE id = ?`,
			time.Now().Add(-age), visit, p.ID)
		require.NoError(t, err)
		return p
	}

	mk(alice, "old-news", "Old News", "news", 100, false, 30*24*time.Hour)
	mk(alice, "go-generics", "Go Generics Deep Dive", "tech", 50, true, 2*24*time.Hour)
	mk(bob, "fresh-take", "A Fresh Take on Go", "tech", 80, false, 24*time.Hour)

	page := repository.Page{Limit: 10, Offset: 0}

	t.Run("category filter", func(t *testing.T) {
		posts, err := db.List(ctx, repository.PostFilter{Category: "tech"}, repository.SortNewest, page)
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	})

	t.Run("author filter", func(t *testing.T) {
		posts, err := db.List(ctx, repository.PostFilter{AuthorID: bob.ID}, repository.SortNewest, page)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "fresh-take", posts[0].Slug)
		require.NotNil(t, posts[0].Author)
		assert.Equal(t, "bob", posts[0].Author.Username)
	})

	t.Run("search is case-insensitive substring on title", func(t *testing.T) {
		posts, err := db.List(ctx, repository.PostFilter{Search: "go"}, repository.SortNewest, page)
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	})

	t.Run("featured filter", func(t *testing.T) {
		posts, err := db.List(ctx, repository.PostFilter{FeaturedOnly: true}, repository.SortNewest, page)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "go-generics", posts[0].Slug)
	})

	t.Run("newest ordering", func(t *testing.T) {
		posts, err := db.List(ctx, repository.PostFilter{}, repository.SortNewest, page)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "fresh-take", posts[0].Slug)
		assert.Equal(t, "old-news", posts[2].Slug)
	})

	t.Run("oldest ordering", func(t *testing.T) {
		posts, err := db.List(ctx, repository.PostFilter{}, repository.SortOldest, page)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "old-news", posts[0].Slug)
	})

	t.Run("popular ordering", func(t *testing.T) {
		posts, err := db.List(ctx, repository.PostFilter{}, repository.SortPopular, page)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "old-news", posts[0].Slug)
		assert.Equal(t, "fresh-take", posts[1].Slug)
	})

	t.Run("trending window excludes old posts", func(t *testing.T) {
		filter := repository.PostFilter{CreatedAfter: time.Now().Add(-7 * 24 * time.Hour)}
		posts, err := db.List(ctx, filter, repository.SortPopular, page)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		for _, p := range posts {
			assert.True(t, p.CreatedAt.After(time.Now().Add(-7*24*time.Hour)))
		}
	})

	t.Run("count matches filter", func(t *testing.T) {
		total, err := db.Count(ctx, repository.PostFilter{Category: "tech"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})
}

func TestListPagesAreDisjointAndComplete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "ext-1", "alice")

	// identical created_at timestamps force the id tie-break
	for i := 0; i < 25; i++ {
		seedPost(t, db, user.ID, fmt.Sprintf("post-%02d", i), fmt.Sprintf("Post %02d", i), "news")
	}
	_, err := db.conn.ExecContext(ctx, `UPDATE posts SET created_at = ?`, time.Now())
	require.NoError(t, err)

	seen := map[string]bool{}
	for offset := 0; offset < 25; offset += 10 {
		posts, err := db.List(ctx, repository.PostFilter{}, repository.SortNewest,
			repository.Page{Limit: 10, Offset: offset})
		require.NoError(t, err)
		for _, p := range posts {
			assert.False(t, seen[p.ID], "post %s appeared on two pages", p.Slug)
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, 25, "union of all pages equals the full set")
}

func TestUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "ext-1", "alice")
	post := seedPost(t, db, user.ID, "story", "Story", "news")

	post.Title = "Updated Story"
	post.Slug = "updated-story"
	require.NoError(t, db.Update(ctx, post))

	got, err := db.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated-story", got.Slug)
	assert.Equal(t, "Updated Story", got.Title)

	require.NoError(t, db.Delete(ctx, post.ID))
	err = db.Delete(ctx, post.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestIncrementVisit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "ext-1", "alice")
	post := seedPost(t, db, user.ID, "story", "Story", "news")

	require.NoError(t, db.IncrementVisit(ctx, "story"))
	require.NoError(t, db.IncrementVisit(ctx, "story"))

	got, err := db.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Visit)
}

func TestToggleSaved(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, "ext-1", "alice")
	post := seedPost(t, db, user.ID, "story", "Story", "news")

	saved, err := db.ToggleSaved(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	ids, err := db.SavedPostIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{post.ID}, ids)

	saved, err = db.ToggleSaved(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	ids, err = db.SavedPostIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
