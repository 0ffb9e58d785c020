// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"codeberg.org/barrioenergy/site/internal/i18n"
	"codeberg.org/barrioenergy/site/internal/metrics"
	"codeberg.org/barrioenergy/site/internal/registry"
	"codeberg.org/barrioenergy/site/internal/templates"
	"github.com/labstack/echo/v4"
)

// ResultPath is where followed confirmation links end up.
const ResultPath = "/subscribe/result"

// SubscribeHandlers serves the public newsletter endpoints.
type SubscribeHandlers struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
}

// NewSubscribe creates the subscription handlers.
func NewSubscribe(reg *registry.Registry, m *metrics.Metrics) *SubscribeHandlers {
	return &SubscribeHandlers{registry: reg, metrics: m}
}

// SubscribeRequest is the body of POST /subscribe.
type SubscribeRequest struct {
	Email string `json:"email" form:"email"`
}

var outcomeMessages = map[registry.Outcome]string{
	registry.OutcomePending:           "subscribe_confirmation_sent",
	registry.OutcomeCheckEmail:        "subscribe_check_email",
	registry.OutcomeAlreadySubscribed: "subscribe_already",
}

// Subscribe registers an address and starts the double opt-in.
func (h *SubscribeHandlers) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()

	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_invalid_request")
	}

	outcome, err := h.registry.Register(ctx, req.Email)
	switch {
	case errors.Is(err, registry.ErrInvalidEmail):
		h.metrics.Registrations.WithLabelValues("invalid").Inc()
		return jsonError(c, http.StatusBadRequest, "error_invalid_email")
	case err != nil:
		h.metrics.Registrations.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "subscribe_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_storage")
	}

	h.metrics.Registrations.WithLabelValues(outcome.String()).Inc()

	status := http.StatusOK
	if outcome == registry.OutcomePending {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]any{
		"message": i18n.T(ctx, outcomeMessages[outcome]),
		"pending": outcome.Pending(),
	})
}

// Resolve applies a confirm or unsubscribe link and redirects to the
// result page.
func (h *SubscribeHandlers) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.QueryParam("token")

	action, err := registry.ParseAction(c.QueryParam("action"))
	if err == nil {
		err = h.registry.Resolve(ctx, token, action)
	}

	var status string
	switch {
	case err == nil && action == registry.ActionConfirm:
		status = templates.StatusConfirmed
	case err == nil:
		status = templates.StatusUnsubscribed
	case errors.Is(err, registry.ErrUnknownToken), errors.Is(err, registry.ErrInvalidAction):
		status = templates.StatusInvalid
	default:
		slog.ErrorContext(ctx, "resolve_failed", "action", string(action), "error", err)
		status = templates.StatusError
	}

	label := string(action)
	if label == "" {
		label = "invalid"
	}
	h.metrics.Resolutions.WithLabelValues(label, status).Inc()

	return c.Redirect(http.StatusSeeOther, ResultPath+"?"+url.Values{"status": {status}}.Encode())
}

// Result renders the outcome page for a followed link.
func (h *SubscribeHandlers) Result(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store")
	return Render(c, http.StatusOK, templates.SubscribeResult(c.QueryParam("status")))
}
