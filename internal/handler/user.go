package handler

import (
	"encoding/json"
	"net/http"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/service"
)

// UserHandler serves the authenticated user's saved articles.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// HandleSaved returns the ids of the posts the caller has saved.
//
// HTTP: GET /users/saved
// Auth: required
func (h *UserHandler) HandleSaved(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	ids, err := h.users.SavedPostIDs(r.Context(), ident)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ids)
}

type saveRequest struct {
	PostID string `json:"postId"`
}

// HandleToggleSaved saves or unsaves a post for the caller.
//
// HTTP: PATCH /users/save
// Auth: required
func (h *UserHandler) HandleToggleSaved(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PostID == "" {
		writeError(w, apperror.ValidationFailed("postId", "postId is required"))
		return
	}

	saved, err := h.users.ToggleSaved(r.Context(), ident, req.PostID)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "post unsaved"
	if saved {
		message = "post saved"
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved, "message": message})
}
