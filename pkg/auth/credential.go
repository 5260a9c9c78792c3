// Package auth manages the Courtline bearer credential used by both the
// REST client and the realtime connection.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is a stored login: the opaque bearer token issued by the
// backend plus the identity claims decoded from it.
type Credential struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Nickname    string    `json:"nickname,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

var ErrNoCredential = errors.New("not logged in")

// Expired reports whether the token's exp claim has passed. Tokens without
// an exp claim never expire locally; the backend still rejects them.
func (c *Credential) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// FromToken decodes identity claims out of a bearer token. The signature is
// not verified: this client has no key material and the backend re-verifies
// every call. Tokens that are not JWTs are accepted as fully opaque, with no
// local identity; callers that need a user id must supply one.
func FromToken(token string) *Credential {
	cred := &Credential{AccessToken: token}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return cred
	}
	if sub, err := claims.GetSubject(); err == nil {
		cred.UserID = sub
	}
	if cred.UserID == "" {
		if id, ok := claims["user_id"].(string); ok {
			cred.UserID = id
		}
	}
	if nick, ok := claims["nickname"].(string); ok {
		cred.Nickname = nick
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		cred.ExpiresAt = exp.Time
	}
	return cred
}

// Load reads the persisted credential.
func Load(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parsing credential: %w", err)
	}
	if cred.AccessToken == "" {
		return nil, ErrNoCredential
	}
	return &cred, nil
}

// Save persists the credential with owner-only permissions.
func Save(path string, cred *Credential) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
