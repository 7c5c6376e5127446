package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/service"
)

// AuthHandler manages the OAuth login flow against the identity provider and
// the session cookie lifecycle.
type AuthHandler struct {
	provider   *identity.Provider
	tokens     *identity.TokenService
	users      *service.UserService
	appBaseURL string // where the browser lands after login/logout
	sessionTTL int    // cookie MaxAge in seconds
	logger     *slog.Logger
}

func NewAuthHandler(
	provider *identity.Provider,
	tokens *identity.TokenService,
	users *service.UserService,
	appBaseURL string,
	sessionTTLSeconds int,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:   provider,
		tokens:     tokens,
		users:      users,
		appBaseURL: appBaseURL,
		sessionTTL: sessionTTLSeconds,
		logger:     logger,
	}
}

// HandleLogin redirects the browser to the provider's authorization page.
//
// HTTP: GET /auth/login
//
// A random state nonce is stored in a short-lived HttpOnly cookie and must
// match on callback, proving the callback belongs to a flow this server
// started.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth flow: verify state, exchange the code for
// provider claims, sync the local user record, and issue the session cookie.
//
// HTTP: GET /auth/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch or missing")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// the state cookie is single-use
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.appBaseURL+"?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	claims, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	ident := claims.Identity()

	// keep the local record in step with the provider profile
	if _, err := h.users.Sync(r.Context(), ident); err != nil {
		h.logger.Error("auth callback: user sync failed",
			slog.String("key", ident.Key),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	tokenStr, err := h.tokens.Generate(ident)
	if err != nil {
		h.logger.Error("auth callback: token generation failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookie,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   h.sessionTTL,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user authenticated",
		slog.String("key", ident.Key),
		slog.String("username", ident.Username),
	)

	http.Redirect(w, r, h.appBaseURL, http.StatusSeeOther)
}

// HandleLogout clears the session cookie. The token stays valid until expiry,
// but without the cookie the browser can no longer present it.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the caller's identity claims, as carried in the session.
//
// HTTP: GET /auth/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"key":       ident.Key,
		"role":      string(ident.Role),
		"email":     ident.Email,
		"username":  ident.Username,
		"avatarUrl": ident.AvatarURL,
	})
}
