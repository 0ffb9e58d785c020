// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package markdown renders admin-authored Markdown to HTML.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Formats accepted for article and newsletter bodies.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned for a body format other than html or markdown.
var ErrUnknownFormat = errors.New("unknown body format")

// Raw HTML is passed through: every author is an authenticated admin.
var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(),
	),
)

// Render converts Markdown source to HTML.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(strings.TrimSpace(src)), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// ToHTML returns body as HTML for the given format. An empty format means HTML.
func ToHTML(body, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatHTML:
		return body, nil
	case FormatMarkdown, "md":
		return Render(body)
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, format)
}
