// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package articles stores the site's news posts.
package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"codeberg.org/barrioenergy/site/internal/markdown"
	"codeberg.org/barrioenergy/site/internal/models"
	"codeberg.org/barrioenergy/site/internal/store"
)

var (
	ErrNotFound      = errors.New("article not found")
	ErrMissingFields = errors.New("title, excerpt and body are required")
	ErrSlugExists    = errors.New("article slug already exists")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
)

const (
	dateLayout     = "2006-01-02"
	maxSlugLength  = 60
	wordsPerMinute = 230
	defaultAuthor  = "Barrio Energy"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	htmlTag         = regexp.MustCompile(`<[^>]*>`)
)

// PublishInput is a new article as submitted by an admin.
type PublishInput struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Author  string `json:"author"`
	Excerpt string `json:"excerpt"`
	Body    string `json:"body"`
	Image   string `json:"image"`
	Format  string `json:"format"` // html (default) or markdown
}

// Store keeps articles in a JSON document, newest first.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for default publish dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store for the document at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// All returns every article sorted by date, newest first.
func (s *Store) All(_ context.Context) ([]models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(idx.Articles, func(a, b models.Article) int {
		return strings.Compare(b.Date, a.Date)
	})
	return idx.Articles, nil
}

// BySlug returns the article with slug.
func (s *Store) BySlug(_ context.Context, slug string) (models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.load()
	if err != nil {
		return models.Article{}, err
	}
	for _, a := range idx.Articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return models.Article{}, ErrNotFound
}

// Publish adds a new article in front of the existing ones.
func (s *Store) Publish(ctx context.Context, in PublishInput) (models.Article, error) {
	article, err := s.build(in)
	if err != nil {
		return models.Article{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		return models.Article{}, err
	}
	if slices.ContainsFunc(idx.Articles, func(a models.Article) bool { return a.Slug == article.Slug }) {
		return models.Article{}, ErrSlugExists
	}

	idx.Articles = slices.Insert(idx.Articles, 0, article)
	if err := store.WriteJSON(s.path, idx); err != nil {
		return models.Article{}, fmt.Errorf("saving articles: %w", err)
	}

	slog.InfoContext(ctx, "article_published", "slug", article.Slug)
	return article, nil
}

func (s *Store) build(in PublishInput) (models.Article, error) {
	title := strings.TrimSpace(in.Title)
	excerpt := strings.TrimSpace(in.Excerpt)
	if title == "" || excerpt == "" || strings.TrimSpace(in.Body) == "" {
		return models.Article{}, ErrMissingFields
	}

	slug := Slugify(title)
	if slug == "" {
		return models.Article{}, ErrMissingFields
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return models.Article{}, ErrInvalidDate
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = defaultAuthor
	}

	body, err := markdown.ToHTML(in.Body, in.Format)
	if err != nil {
		return models.Article{}, err
	}

	return models.Article{
		Slug:        slug,
		Title:       title,
		Date:        date,
		Author:      author,
		Excerpt:     excerpt,
		Body:        body,
		Image:       strings.TrimSpace(in.Image),
		ReadingTime: ReadingTime(body),
	}, nil
}

func (s *Store) load() (*models.ArticleIndex, error) {
	var idx models.ArticleIndex
	if _, err := store.ReadJSON(s.path, &idx); err != nil {
		return nil, fmt.Errorf("loading articles: %w", err)
	}
	return &idx, nil
}

// Slugify turns a title into a URL path segment of at most 60 characters.
func Slugify(title string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// ReadingTime estimates minutes to read an HTML body, at least one.
func ReadingTime(html string) int {
	words := len(strings.Fields(htmlTag.ReplaceAllString(html, " ")))
	return max(1, (words+wordsPerMinute-1)/wordsPerMinute)
}
