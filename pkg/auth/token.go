package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// URLTokenBytes is the entropy of a survey link token (256 bits)
const URLTokenBytes = 32

// GenerateURLToken returns a random token safe to embed in a URL path
func GenerateURLToken() (string, error) {
	b := make([]byte, URLTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
