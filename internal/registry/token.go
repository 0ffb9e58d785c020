// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package registry

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenLength is the number of random bytes in a confirmation token.
const TokenLength = 32

// NewToken returns a URL-safe confirmation token with 256 bits of entropy.
func NewToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
