package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/service"
)

// PostHandler serves the post listing and lifecycle endpoints.
type PostHandler struct {
	posts *service.PostService
}

func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// HandleList returns one page of posts.
//
// HTTP: GET /posts?page=&limit=&cat=&author=&search=&featured=&sort=
//
// All parameters are optional. Unparseable numbers fall back to defaults
// rather than erroring — a garbled pagination link should still render page 1.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	featured, _ := strconv.ParseBool(q.Get("featured"))

	result, err := h.posts.List(r.Context(), service.ListParams{
		Page:     page,
		Limit:    limit,
		Category: q.Get("cat"),
		Author:   q.Get("author"),
		Search:   q.Get("search"),
		Featured: featured,
		Sort:     q.Get("sort"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGetBySlug returns a single post and records the visit.
//
// HTTP: GET /posts/{slug}
func (h *PostHandler) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// createRequest is the JSON body for post creation.
type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CoverImage  string `json:"coverImage"`
	Content     string `json:"content"`
}

// HandleCreate publishes a new post owned by the caller.
//
// HTTP: POST /posts
// Auth: required
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	post, err := h.posts.Create(r.Context(), ident, service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CoverImage:  req.CoverImage,
		Content:     req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// updateRequest is the JSON patch body for a post edit. Pointer fields
// distinguish "absent" from "set to empty"; unknown fields are dropped.
type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	CoverImage  *string `json:"coverImage"`
	Content     *string `json:"content"`
}

// HandleUpdate edits a post.
//
// HTTP: PATCH /posts/{id}
// Auth: required (owner or admin)
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	post, err := h.posts.Update(r.Context(), ident, chi.URLParam(r, "id"), service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CoverImage:  req.CoverImage,
		Content:     req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /posts/{id}
// Auth: required (owner or admin)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	if err := h.posts.Delete(r.Context(), ident, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

// HandleFeature toggles a post's featured flag.
//
// HTTP: PATCH /posts/{id}/feature
// Auth: required (admin)
func (h *PostHandler) HandleFeature(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	post, err := h.posts.ToggleFeatured(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}
