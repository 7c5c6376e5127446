package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syn-press/syn-api/internal/identity"
	sqliteRepo "github.com/syn-press/syn-api/internal/repository/sqlite"
	"github.com/syn-press/syn-api/internal/service"
)

const testSecret = "test-secret-at-least-16-chars"

// testRouter wires the post routes against an in-memory database, mirroring
// the production route layout.
func testRouter(t *testing.T) (*chi.Mux, *identity.TokenService) {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens, err := identity.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	posts := NewPostHandler(service.NewPostService(db, db, logger))
	comments := NewCommentHandler(service.NewCommentService(db, db, db, logger))
	users := NewUserHandler(service.NewUserService(db, db, logger))

	requireAuth := identity.RequireAuth(tokens)

	r := chi.NewRouter()
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", posts.HandleList)
		r.Get("/{slug}", posts.HandleGetBySlug)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", posts.HandleCreate)
			r.Patch("/{id}", posts.HandleUpdate)
			r.Delete("/{id}", posts.HandleDelete)
			r.Patch("/{id}/feature", posts.HandleFeature)
		})
	})
	r.Route("/comments", func(r chi.Router) {
		r.Get("/{postId}", comments.HandleListByPost)
		r.With(requireAuth).Post("/{postId}", comments.HandleCreate)
		r.With(requireAuth).Delete("/{id}", comments.HandleDelete)
	})
	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/saved", users.HandleSaved)
		r.Patch("/save", users.HandleToggleSaved)
	})

	return r, tokens
}

func authHeader(t *testing.T, tokens *identity.TokenService, ident identity.Identity) string {
	t.Helper()
	token, err := tokens.Generate(ident)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, r http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

var writer = identity.Identity{Key: "ext-writer", Role: identity.RoleUser, Email: "writer@example.com", Username: "writer"}
var admin = identity.Identity{Key: "ext-admin", Role: identity.RoleAdmin, Email: "admin@example.com", Username: "admin"}
var stranger = identity.Identity{Key: "ext-stranger", Role: identity.RoleUser, Email: "s@example.com", Username: "stranger"}

func TestPostLifecycle(t *testing.T) {
	r, tokens := testRouter(t)
	auth := authHeader(t, tokens, writer)

	// create
	rec := doJSON(t, r, http.MethodPost, "/posts", auth, map[string]string{
		"title":   "Café & Código!",
		"content": "body",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "cafe-codigo", created["slug"])
	id := created["id"].(string)

	// read by slug
	rec = doJSON(t, r, http.MethodGet, "/posts/cafe-codigo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// patch description only, slug stays
	rec = doJSON(t, r, http.MethodPatch, "/posts/"+id, auth, map[string]string{"description": "updated"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "cafe-codigo", updated["slug"])
	assert.Equal(t, "updated", updated["description"])

	// delete
	rec = doJSON(t, r, http.MethodDelete, "/posts/"+id, auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/posts/cafe-codigo", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMutationsRequireAuth(t *testing.T) {
	r, _ := testRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/posts"},
		{http.MethodPatch, "/posts/some-id"},
		{http.MethodDelete, "/posts/some-id"},
		{http.MethodPatch, "/posts/some-id/feature"},
	} {
		rec := doJSON(t, r, tc.method, tc.path, "", map[string]string{"title": "x"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestPostErrorMapping(t *testing.T) {
	r, tokens := testRouter(t)
	writerAuth := authHeader(t, tokens, writer)
	strangerAuth := authHeader(t, tokens, stranger)

	rec := doJSON(t, r, http.MethodPost, "/posts", writerAuth, map[string]string{"title": "Owned"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["id"].(string)

	t.Run("blank title is 422", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/posts", writerAuth, map[string]string{"title": "  "})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "validation_error", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("unslugifiable title is 422", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/posts", writerAuth, map[string]string{"title": "!!!"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_title", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("editing someone else's post is 403", func(t *testing.T) {
		// the stranger needs a local record so the check is ownership, not existence
		rec := doJSON(t, r, http.MethodPost, "/posts", strangerAuth, map[string]string{"title": "Stranger Post"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, r, http.MethodPatch, "/posts/"+id, strangerAuth, map[string]string{"description": "x"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing post is 404", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, "/posts/nope", writerAuth, map[string]string{"description": "x"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("featuring as non-admin is 403", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, "/posts/"+id+"/feature", writerAuth, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestFeatureAndFilteredList(t *testing.T) {
	r, tokens := testRouter(t)
	writerAuth := authHeader(t, tokens, writer)
	adminAuth := authHeader(t, tokens, admin)

	for i := 0; i < 3; i++ {
		rec := doJSON(t, r, http.MethodPost, "/posts", writerAuth, map[string]string{
			"title":    fmt.Sprintf("Story %d", i),
			"category": "tech",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, r, http.MethodGet, "/posts?cat=tech", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decode[map[string]any](t, rec)
	assert.Len(t, listing["posts"], 3)
	assert.Equal(t, float64(3), listing["total"])
	assert.Equal(t, false, listing["hasMore"])

	// feature one as admin, then filter
	rec = doJSON(t, r, http.MethodGet, "/posts/story-0", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = doJSON(t, r, http.MethodPatch, "/posts/"+id+"/feature", adminAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["isFeatured"])

	rec = doJSON(t, r, http.MethodGet, "/posts?featured=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing = decode[map[string]any](t, rec)
	assert.Len(t, listing["posts"], 1)

	t.Run("unknown author yields an empty envelope", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/posts?author=nobody", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		listing := decode[map[string]any](t, rec)
		assert.Empty(t, listing["posts"])
		assert.Equal(t, float64(0), listing["total"])
	})
}

func TestCommentEndpoints(t *testing.T) {
	r, tokens := testRouter(t)
	writerAuth := authHeader(t, tokens, writer)
	strangerAuth := authHeader(t, tokens, stranger)

	rec := doJSON(t, r, http.MethodPost, "/posts", writerAuth, map[string]string{"title": "Commented"})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decode[map[string]any](t, rec)["id"].(string)

	rec = doJSON(t, r, http.MethodPost, "/comments/"+postID, strangerAuth, map[string]string{"content": "first!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	commentID := decode[map[string]any](t, rec)["id"].(string)

	rec = doJSON(t, r, http.MethodGet, "/comments/"+postID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	t.Run("someone else's comment cannot be deleted", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/comments/"+commentID, writerAuth, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("the author deletes their comment", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/comments/"+commentID, strangerAuth, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSavedPostsEndpoints(t *testing.T) {
	r, tokens := testRouter(t)
	writerAuth := authHeader(t, tokens, writer)
	readerAuth := authHeader(t, tokens, stranger)

	rec := doJSON(t, r, http.MethodPost, "/posts", writerAuth, map[string]string{"title": "Saveable"})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decode[map[string]any](t, rec)["id"].(string)

	rec = doJSON(t, r, http.MethodGet, "/users/saved", readerAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]string](t, rec))

	rec = doJSON(t, r, http.MethodPatch, "/users/save", readerAuth, map[string]string{"postId": postID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["saved"])

	rec = doJSON(t, r, http.MethodGet, "/users/saved", readerAuth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{postID}, decode[[]string](t, rec))

	rec = doJSON(t, r, http.MethodPatch, "/users/save", readerAuth, map[string]string{"postId": postID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["saved"])

	t.Run("saving a missing post is 404", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, "/users/save", readerAuth, map[string]string{"postId": "missing"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
