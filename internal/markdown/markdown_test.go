// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package markdown_test

import (
	"testing"

	"codeberg.org/barrioenergy/site/internal/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	html, err := markdown.Render("## Grid update\n\nERCOT demand is **up**.\n\n| MW | Site |\n|----|------|\n| 13 | Monahans |")
	require.NoError(t, err)

	assert.Contains(t, html, "<h2>Grid update</h2>")
	assert.Contains(t, html, "<strong>up</strong>")
	assert.Contains(t, html, "<table>")
}

func TestRender_RawHTMLKept(t *testing.T) {
	html, err := markdown.Render(`<p class="lead">Hello</p>`)
	require.NoError(t, err)
	assert.Contains(t, html, `<p class="lead">Hello</p>`)
}

func TestToHTML(t *testing.T) {
	tests := []struct {
		format  string
		body    string
		want    string
		wantErr bool
	}{
		{"", "<p>x</p>", "<p>x</p>", false},
		{"html", "<p>x</p>", "<p>x</p>", false},
		{"markdown", "*x*", "<p><em>x</em></p>\n", false},
		{"MD", "*x*", "<p><em>x</em></p>\n", false},
		{"rtf", "x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := markdown.ToHTML(tt.body, tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, markdown.ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
