package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	tokenBytes     = 32
	maxTokenLength = 128
)

// generateToken returns 32 random bytes as unpadded base64url (43 chars).
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
