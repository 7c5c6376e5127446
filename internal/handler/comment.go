package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/service"
)

// CommentHandler serves reader comments.
type CommentHandler struct {
	comments *service.CommentService
}

func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// HandleListByPost returns a post's comments, newest first.
//
// HTTP: GET /comments/{postId}
func (h *CommentHandler) HandleListByPost(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListByPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Content string `json:"content"`
}

// HandleCreate adds a comment to a post.
//
// HTTP: POST /comments/{postId}
// Auth: required
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	comment, err := h.comments.Create(r.Context(), ident, chi.URLParam(r, "postId"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// HandleDelete removes a comment.
//
// HTTP: DELETE /comments/{id}
// Auth: required (author or admin)
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	if err := h.comments.Delete(r.Context(), ident, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}
