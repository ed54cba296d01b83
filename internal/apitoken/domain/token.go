package domain

import (
	"errors"
	"strings"
	"time"
)

// Token is a long-lived API credential presented as "<ID>:<secret>".
// TokenHash is the bcrypt hash of the secret; the plaintext secret is never stored.
type Token struct {
	ID         string
	UserID     string
	OrgID      string // organization the token authorizes
	Name       string
	TokenHash  string
	LastUsedAt *time.Time // nil until first successful use; never moves backwards
	CreatedAt  time.Time
}

// ErrMalformed is returned by Parse when the credential is not "<id>:<secret>" with both halves non-empty.
var ErrMalformed = errors.New("api token must be <id>:<secret>")

// Parse splits a presented credential on the first colon. Everything after the first colon,
// including further colons, is the secret.
func Parse(plaintext string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(plaintext, ":")
	if !ok || id == "" || secret == "" {
		return "", "", ErrMalformed
	}
	return id, secret, nil
}

// Format joins id and secret into the presented form.
func Format(id, secret string) string {
	return id + ":" + secret
}

// Validate validates the token for persistence. Returns an error describing the first validation failure.
func (t *Token) Validate() error {
	switch {
	case t.ID == "":
		return errors.New("id is required")
	case strings.Contains(t.ID, ":"):
		return errors.New("id must not contain ':'")
	case t.UserID == "":
		return errors.New("user_id is required")
	case t.OrgID == "":
		return errors.New("org_id is required")
	case t.TokenHash == "":
		return errors.New("token_hash is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}
