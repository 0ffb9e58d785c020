// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// Article is a published news post.
type Article struct { //nolint:govet // fieldalignment not critical for models
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Date        string `json:"date"` // YYYY-MM-DD
	Author      string `json:"author"`
	Excerpt     string `json:"excerpt"`
	Body        string `json:"body"` // HTML
	Image       string `json:"image,omitempty"`
	ReadingTime int    `json:"readingTime"` // minutes
}

// ArticleIndex is the persisted article document.
type ArticleIndex struct {
	Articles []Article `json:"articles"`
}
