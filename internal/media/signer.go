// Package media produces client-upload authentication parameters for the CDN.
// The platform never proxies file bytes — the browser uploads directly to the
// CDN using a short-lived signature minted here, and only the resulting path
// string is stored on posts.
package media

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/rs/xid"
)

// AuthParams is the signature bundle the CDN's upload API expects: a one-time
// token, a unix expiry, and an HMAC-SHA1 of token+expire under the private key.
type AuthParams struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

// Signer mints upload authentication parameters.
type Signer struct {
	privateKey []byte
	ttl        time.Duration
}

// NewSigner creates a Signer. ttl bounds how long a minted signature stays
// usable.
func NewSigner(privateKey string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Signer{privateKey: []byte(privateKey), ttl: ttl}
}

// Sign mints parameters for one upload.
func (s *Signer) Sign(now time.Time) AuthParams {
	token := xid.New().String()
	expire := now.Add(s.ttl).Unix()
	return AuthParams{
		Token:     token,
		Expire:    expire,
		Signature: s.signature(token, expire),
	}
}

func (s *Signer) signature(token string, expire int64) string {
	mac := hmac.New(sha1.New, s.privateKey)
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
