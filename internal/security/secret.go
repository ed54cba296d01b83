package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// DefaultSecretBytes is the entropy used for API token secrets and session ids.
const DefaultSecretBytes = 32

// GenerateSecret returns n random bytes from crypto/rand, base64url-encoded without padding.
// The output never contains ':' so it is safe as the secret half of "<id>:<secret>".
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("security: secret length must be positive")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
