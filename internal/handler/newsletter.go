package handler

import (
	"encoding/json"
	"net/http"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/service"
)

// NewsletterHandler serves the public subscription endpoint.
type NewsletterHandler struct {
	newsletter *service.NewsletterService
}

func NewNewsletterHandler(newsletter *service.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{newsletter: newsletter}
}

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	// Website is the honeypot: a hidden field humans never see and bots fill.
	Website string `json:"website"`
}

// HandleSubscribe registers a newsletter subscription.
//
// HTTP: POST /newsletter/subscribe
func (h *NewsletterHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.newsletter.Subscribe(r.Context(), req.Email, req.Name, req.Website); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "subscribed"})
}
