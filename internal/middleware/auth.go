// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware contains the site's echo middleware.
package middleware

import (
	"log/slog"
	"net/http"

	"codeberg.org/barrioenergy/site/internal/i18n"
	"codeberg.org/barrioenergy/site/internal/services/session"
	"github.com/labstack/echo/v4"
)

// SessionKey is the echo context key holding the parsed admin session.
const SessionKey = "admin_session"

// SessionParser reads the admin session from a request.
type SessionParser interface {
	Parse(r *http.Request) (*session.Data, error)
}

// RequireAdmin rejects requests without a valid admin session with 401.
func RequireAdmin(sessions SessionParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			data, err := sessions.Parse(c.Request())
			if err != nil {
				slog.WarnContext(c.Request().Context(), "session_parse_failed", "error", err)
			}
			if data == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": i18n.T(c.Request().Context(), "error_unauthorized"),
				})
			}
			c.Set(SessionKey, data)
			return next(c)
		}
	}
}
