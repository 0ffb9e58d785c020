// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/barrioenergy/site/internal/articles"
	"codeberg.org/barrioenergy/site/internal/i18n"
	"codeberg.org/barrioenergy/site/internal/markdown"
	"codeberg.org/barrioenergy/site/internal/metrics"
	"codeberg.org/barrioenergy/site/internal/models"
	"codeberg.org/barrioenergy/site/internal/registry"
	"codeberg.org/barrioenergy/site/internal/services/auth"
	"codeberg.org/barrioenergy/site/internal/services/session"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Broadcaster sends a newsletter to a list of recipients.
type Broadcaster interface {
	Broadcast(ctx context.Context, recipients []string, subject, bodyHTML string) error
}

// AdminHandlers serves the password-protected admin API.
type AdminHandlers struct {
	auth        *auth.Service
	sessions    *session.Manager
	registry    *registry.Registry
	broadcaster Broadcaster
	articles    *articles.Store
	metrics     *metrics.Metrics
}

// AdminDeps groups the collaborators of the admin handlers.
type AdminDeps struct {
	Auth        *auth.Service
	Sessions    *session.Manager
	Registry    *registry.Registry
	Broadcaster Broadcaster
	Articles    *articles.Store
	Metrics     *metrics.Metrics
}

// NewAdmin creates the admin handlers.
func NewAdmin(deps AdminDeps) *AdminHandlers {
	return &AdminHandlers{
		auth:        deps.Auth,
		sessions:    deps.Sessions,
		registry:    deps.Registry,
		broadcaster: deps.Broadcaster,
		articles:    deps.Articles,
		metrics:     deps.Metrics,
	}
}

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Password string `json:"password" form:"password"`
}

// Login exchanges the admin password for a session cookie.
func (h *AdminHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_invalid_request")
	}

	if err := h.auth.Authenticate(req.Password); err != nil {
		slog.WarnContext(c.Request().Context(), "admin_login_failed", "ip", c.RealIP())
		return jsonError(c, http.StatusUnauthorized, "error_invalid_password")
	}

	cookie, err := h.sessions.Create(auth.AdminSubject)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)

	slog.InfoContext(c.Request().Context(), "admin_login", "ip", c.RealIP())
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Logout removes the session cookie.
func (h *AdminHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// SubscribersResponse is the body of GET /admin/subscribers.
type SubscribersResponse struct {
	Subscribers []models.Subscriber `json:"subscribers"`
	Emails      []string            `json:"emails"`
	Count       int                 `json:"count"`
}

// Subscribers lists every record plus the confirmed addresses.
func (h *AdminHandlers) Subscribers(c echo.Context) error {
	ctx := c.Request().Context()

	subs, err := h.registry.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "list_subscribers_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_storage")
	}

	emails := registry.ConfirmedEmails(subs)
	return c.JSON(http.StatusOK, SubscribersResponse{
		Subscribers: subs,
		Emails:      emails,
		Count:       len(emails),
	})
}

// SendRequest is the body of POST /admin/send.
type SendRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Format  string `json:"format"` // html (default) or markdown
}

// Send mails a newsletter to all confirmed subscribers. Delivery happens in
// the background; the response only confirms the hand-off.
func (h *AdminHandlers) Send(c echo.Context) error {
	ctx := c.Request().Context()

	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_invalid_request")
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" || strings.TrimSpace(req.Body) == "" {
		return jsonError(c, http.StatusBadRequest, "broadcast_missing_fields")
	}

	body, err := markdown.ToHTML(req.Body, req.Format)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	recipients, err := h.registry.ConfirmedEmails(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "list_subscribers_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_storage")
	}
	if len(recipients) == 0 {
		return jsonError(c, http.StatusBadRequest, "broadcast_no_recipients")
	}

	if err := h.broadcaster.Broadcast(ctx, recipients, subject, body); err != nil {
		slog.ErrorContext(ctx, "broadcast_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_storage")
	}

	id := uuid.NewString()
	h.metrics.Broadcasts.Inc()
	slog.InfoContext(ctx, "broadcast_queued", "broadcast_id", id, "recipients", len(recipients))

	return c.JSON(http.StatusAccepted, map[string]any{
		"success":         true,
		"broadcast_id":    id,
		"recipient_count": len(recipients),
		"message":         i18n.TPlural(ctx, "broadcast_sent", len(recipients)),
	})
}

// Publish adds a news article.
func (h *AdminHandlers) Publish(c echo.Context) error {
	ctx := c.Request().Context()

	var in articles.PublishInput
	if err := c.Bind(&in); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_invalid_request")
	}

	article, err := h.articles.Publish(ctx, in)
	switch {
	case errors.Is(err, articles.ErrMissingFields):
		return jsonError(c, http.StatusBadRequest, "article_missing_fields")
	case errors.Is(err, articles.ErrInvalidDate), errors.Is(err, markdown.ErrUnknownFormat):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, articles.ErrSlugExists):
		return jsonError(c, http.StatusConflict, "article_exists")
	case err != nil:
		slog.ErrorContext(ctx, "publish_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_storage")
	}

	h.metrics.ArticlesPublished.Inc()
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"slug":    article.Slug,
		"message": i18n.T(ctx, "article_published"),
	})
}
