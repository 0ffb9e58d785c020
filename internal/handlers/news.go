// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/barrioenergy/site/internal/articles"
	"codeberg.org/barrioenergy/site/internal/models"
	"github.com/labstack/echo/v4"
)

// NewsHandlers serves published articles.
type NewsHandlers struct {
	articles *articles.Store
}

// NewNews creates the news handlers.
func NewNews(store *articles.Store) *NewsHandlers {
	return &NewsHandlers{articles: store}
}

// List returns all articles, newest first.
func (h *NewsHandlers) List(c echo.Context) error {
	all, err := h.articles.All(c.Request().Context())
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "list_articles_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_storage")
	}
	if all == nil {
		all = []models.Article{}
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": all})
}

// Show returns one article by slug.
func (h *NewsHandlers) Show(c echo.Context) error {
	article, err := h.articles.BySlug(c.Request().Context(), c.Param("slug"))
	if errors.Is(err, articles.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "article_not_found")
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "show_article_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_storage")
	}
	return c.JSON(http.StatusOK, article)
}
