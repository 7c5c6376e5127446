package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "syn-api"

// TokenService signs and validates session JWTs. The token payload is the
// provider's claims snapshot taken at login, so every request can be turned
// into an Identity without calling the provider again.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret should be at least 32
// bytes of random data in production.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("identity: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// sessionClaims embeds the registered claims (sub = provider subject key) and
// adds the provider profile fields needed to rebuild an Identity.
type sessionClaims struct {
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a session token for ident, valid for the configured TTL.
func (s *TokenService) Generate(ident Identity) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Role:      string(ident.Role),
		Email:     ident.Email,
		Username:  ident.Username,
		AvatarURL: ident.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("identity: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token, returning the Identity it
// carries. The signature, expiry, issuer, and algorithm are all checked —
// pinning HS256 prevents algorithm-confusion attacks.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("identity: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("identity: token expired")
		}
		return Identity{}, fmt.Errorf("identity: invalid token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("identity: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("identity: token has no subject")
	}

	role := Role(c.Role)
	if role != RoleAdmin {
		role = RoleUser
	}

	return Identity{
		Key:       c.Subject,
		Role:      role,
		Email:     c.Email,
		Username:  c.Username,
		AvatarURL: c.AvatarURL,
	}, nil
}
