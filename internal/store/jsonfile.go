// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package store provides persistence backends for the subscriber registry.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"codeberg.org/barrioenergy/site/internal/models"
)

// JSONFile keeps the registry in a single JSON document on disk.
type JSONFile struct {
	path string
}

// NewJSONFile creates a store for the document at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the document location.
func (s *JSONFile) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty registry.
func (s *JSONFile) Load(_ context.Context) (*models.Registry, error) {
	var doc models.Registry
	if _, err := ReadJSON(s.path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save replaces the document on disk.
func (s *JSONFile) Save(_ context.Context, doc *models.Registry) error {
	out := *doc
	if out.Subscribers == nil {
		out.Subscribers = []models.Subscriber{}
	}
	return WriteJSON(s.path, &out)
}

// ReadJSON decodes the file at path into v. It reports false without error
// when the file does not exist.
func ReadJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

// WriteJSON encodes v as indented JSON and atomically replaces path with it.
// Readers see either the previous or the new document, never a partial one.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
