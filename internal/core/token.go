// AngelaMos | 2026
// token.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const sessionSecretBytes = 32

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read %d random bytes: %w", n, err)
	}
	return b, nil
}

// GenerateSecureToken returns n random bytes, URL-safe base64 encoded. Used
// for password reset links.
func GenerateSecureToken(n int) (string, error) {
	b, err := randomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GenerateSessionSecret returns 32 random bytes, hex encoded.
func GenerateSessionSecret() (string, error) {
	b, err := randomBytes(sessionSecretBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the only form in which session and reset secrets are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func CompareTokenHash(token, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}
