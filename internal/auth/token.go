// Package auth implements the session credential codec.  A credential is a
// compact signed token stored in a cookie: the base64url encoded JSON payload
// followed by a dot and the base64url encoded HMAC-SHA256 of the encoded
// payload bytes.  No server-side session storage is involved; possession of a
// token with a valid signature is the whole proof of authentication.
package auth

import (
	"crypto/hmac"   // constant-time MAC comparison and keyed hashing
	"crypto/sha256" // SHA-256 used as the HMAC hash
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Role values embedded in credentials.  Anything outside these two must be
// treated as RoleUser by consumers; the codec itself reproduces whatever
// integer was embedded.
const (
	RoleUser  = 0 // standard user, limited access
	RoleAdmin = 1 // administrator, full access
)

// Payload is the only structured value carried inside a credential.  It is
// built at login/signup, serialized into the token and parsed back on every
// protected request.
type Payload struct {
	ID   int64 `json:"id"`   // owning user's primary key
	Role int   `json:"role"` // 0 = user, 1 = admin
}

// Codec issues and verifies credentials with a fixed process-wide secret.
// It is purely computational and safe for concurrent use.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec signing with the given secret.  The secret is
// injected here rather than read from the environment so that tests can use
// their own.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue serializes the payload and returns the signed credential string.
// It always succeeds: two tokens issued for the same payload are
// byte-for-byte identical because the format carries no timestamp or nonce.
func (c *Codec) Issue(p Payload) string {
	body, _ := json.Marshal(p) // cannot fail for this struct
	enc := base64.RawURLEncoding.EncodeToString(body)
	return enc + "." + c.sign(enc)
}

// Verify checks the signature and returns the embedded payload.  Every
// failure mode (missing token, wrong segment count, forged or corrupted
// signature, undecodable payload) collapses to ok == false; callers cannot
// tell them apart.
func (c *Codec) Verify(token string) (Payload, bool) {
	if token == "" {
		return Payload{}, false
	}
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Payload{}, false
	}
	// The MAC covers the encoded payload segment exactly as received.
	expected := c.sign(parts[0])
	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return Payload{}, false
	}
	body, err := decodeSegment(parts[0])
	if err != nil {
		return Payload{}, false
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, false
	}
	return p, true
}

// sign computes the base64url encoded HMAC-SHA256 over the encoded payload
// string using the codec secret.
func (c *Codec) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// decodeSegment decodes a base64url segment, tolerating padding characters
// a foreign encoder may have left in place.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
