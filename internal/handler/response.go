// Package handler exposes the HTTP surface: it decodes requests, calls the
// service layer, and translates domain errors into status codes. No business
// rules live here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/syn-press/syn-api/internal/apperror"
)

// ErrorResponse is the error shape every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable type, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error onto HTTP. Unknown errors become an opaque
// 500 — internal messages never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		status = http.StatusUnauthorized
		errorType = "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrInvalidTitle):
		status = http.StatusUnprocessableEntity
		errorType = "invalid_title"
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusUnprocessableEntity
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	}

	writeJSON(w, status, ErrorResponse{Error: errorType, Message: appErr.Message})
}
