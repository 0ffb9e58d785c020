// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"

	"codeberg.org/barrioenergy/site/internal/config"
	"codeberg.org/barrioenergy/site/internal/metrics"
	"codeberg.org/barrioenergy/site/internal/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	e.Pre(middleware.StripTrailingSlash())

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Secure())
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{
		// promhttp compresses on its own.
		Skipper: func(c echo.Context) bool { return c.Path() == "/metrics" },
	}))
	if cfg.Server.MaxBodySize > 0 {
		e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	}
	e.Use(middleware.Locale())
	e.Use(middleware.Metrics(m))
}
