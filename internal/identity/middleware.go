package identity

import "net/http"

// SessionCookie is the name of the HttpOnly cookie holding the session JWT.
const SessionCookie = "token"

// RequireAuth enforces authentication on protected routes. The session JWT is
// read from the cookie (or an Authorization: Bearer header for API clients),
// validated, and the resulting Identity stored in the request context. A
// missing or invalid token stops the chain with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := extract(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthenticated","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), ident)))
		})
	}
}

// OptionalAuth attaches an Identity when a valid token is present but never
// blocks the request. Handlers on public routes check FromContext themselves.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ident, err := extract(r, tokens); err == nil {
				r = r.WithContext(NewContext(r.Context(), ident))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extract reads the session token from the cookie or the Authorization header
// and validates it.
func extract(r *http.Request, tokens *TokenService) (Identity, error) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return tokens.Validate(cookie.Value)
	}

	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return tokens.Validate(h[len(prefix):])
	}

	return Identity{}, http.ErrNoCookie
}
