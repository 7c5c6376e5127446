// Package identity adapts the external identity provider at the HTTP boundary.
//
// The provider owns authentication entirely: users log in against it via the
// OAuth authorization-code flow (oauth.go), and its claims are carried in a
// locally-signed session JWT (jwt.go). Request middleware (middleware.go)
// validates the token and places a typed Identity in the context — the rest
// of the application never sees a raw claims bag.
package identity

import "context"

// Role is the provider-supplied role claim. Anything other than RoleAdmin is
// treated as a regular user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the typed view of the provider's session claims for one request.
// Key is the provider's stable subject identifier — the only linkage between
// requests and local user records.
type Identity struct {
	Key       string
	Role      Role
	Email     string
	Username  string
	AvatarURL string
}

// IsAdmin reports whether the identity holds the privileged role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// contextKey is unexported so only this package can read or write the
// identity value in a request context.
type contextKey struct{}

// NewContext returns ctx carrying ident.
func NewContext(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, ident)
}

// FromContext retrieves the authenticated identity from the request context.
// ok is false for anonymous requests.
func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(contextKey{}).(Identity)
	return ident, ok && ident.Key != ""
}
