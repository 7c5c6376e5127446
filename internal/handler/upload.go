package handler

import (
	"net/http"
	"time"

	"github.com/syn-press/syn-api/internal/media"
)

// UploadHandler mints CDN upload signatures for authenticated authors.
type UploadHandler struct {
	signer *media.Signer
}

func NewUploadHandler(signer *media.Signer) *UploadHandler {
	return &UploadHandler{signer: signer}
}

// HandleUploadAuth returns one-time upload authentication parameters. The file
// bytes go straight from the browser to the CDN; this endpoint only signs.
//
// HTTP: GET /posts/upload-auth
// Auth: required
func (h *UploadHandler) HandleUploadAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.signer.Sign(time.Now()))
}
