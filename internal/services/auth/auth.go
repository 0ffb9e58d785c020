// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth checks the admin password.
package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/barrioenergy/site/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrNoPassword      = errors.New("admin password is not configured")
)

// AdminSubject is the session subject of the site administrator.
const AdminSubject = "admin"

// Service verifies the single admin password.
type Service struct {
	hash []byte
}

// NewService builds the service from cfg. A configured bcrypt hash wins over
// a plain-text password, which is hashed once here.
func NewService(cfg *config.AdminConfig) (*Service, error) {
	if cfg.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		return &Service{hash: []byte(cfg.PasswordHash)}, nil
	}

	if cfg.Password == "" {
		return nil, ErrNoPassword
	}

	slog.Warn("admin_password_plaintext", "hint", "store a bcrypt hash in admin.password_hash (see hash-password)")
	hash, err := HashPassword(cfg.Password)
	if err != nil {
		return nil, err
	}
	return &Service{hash: []byte(hash)}, nil
}

// Authenticate returns ErrInvalidPassword unless password matches.
func (s *Service) Authenticate(password string) error {
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
