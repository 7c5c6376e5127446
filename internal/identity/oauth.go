package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ProviderConfig holds the identity provider's OAuth endpoints and client
// credentials. The endpoints are configuration, not code — any provider that
// speaks the authorization-code flow and exposes a userinfo endpoint works.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	CallbackURL  string
	Scopes       []string
}

// Claims is the userinfo payload we consume from the provider. The role may
// live either at the top level or under a metadata object depending on how
// the provider is configured; Role() resolves it with a "user" fallback.
type Claims struct {
	Subject   string `json:"sub"`
	Username  string `json:"preferred_username"`
	Email     string `json:"email"`
	AvatarURL string `json:"picture"`
	RoleClaim string `json:"role"`
	Metadata  struct {
		Role string `json:"role"`
	} `json:"metadata"`
}

// Role resolves the effective role from the claim locations the provider may
// use. Unknown or absent values degrade to RoleUser.
func (c Claims) Role() Role {
	role := c.Metadata.Role
	if role == "" {
		role = c.RoleClaim
	}
	if Role(role) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Identity converts provider claims into the typed Identity value.
func (c Claims) Identity() Identity {
	return Identity{
		Key:       c.Subject,
		Role:      c.Role(),
		Email:     c.Email,
		Username:  c.Username,
		AvatarURL: c.AvatarURL,
	}
}

// Provider wraps golang.org/x/oauth2 for the provider's authorization-code
// flow: redirect the user out, exchange the returned code server-to-server,
// then fetch the userinfo claims with the access token.
type Provider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewProvider builds a Provider from configuration.
func NewProvider(cfg ProviderConfig) *Provider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthURL returns the provider URL to redirect the user to. state is a random
// nonce the caller stores in a cookie and verifies on callback (CSRF guard).
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the provider's userinfo claims.
// The access token never leaves the server.
func (p *Provider) Exchange(ctx context.Context, code string) (*Claims, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("identity: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("identity: fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: userinfo endpoint returned status %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("identity: decoding userinfo response: %w", err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("identity: provider returned claims without a subject")
	}

	return &claims, nil
}
