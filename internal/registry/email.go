// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package registry

import (
	"regexp"
	"strings"
)

// emailPattern is a syntactic local@domain.tld check, nothing more.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases raw and validates its shape.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}
