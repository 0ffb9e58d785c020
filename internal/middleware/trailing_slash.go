// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StripTrailingSlash redirects GET and HEAD requests with a trailing slash to
// the canonical URL without. Other methods are rewritten in place so posted
// bodies are not lost. Register it with echo.Pre.
func StripTrailingSlash() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if path == "/" || !strings.HasSuffix(path, "/") {
				return next(c)
			}

			// Leading slashes are collapsed so "//host/" cannot become a
			// protocol-relative redirect.
			trimmed := "/" + strings.Trim(path, "/")

			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				req.URL.Path = trimmed
				req.URL.RawPath = ""
				return next(c)
			}

			target := trimmed
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			return c.Redirect(http.StatusMovedPermanently, target)
		}
	}
}
