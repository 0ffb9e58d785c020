// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/barrioenergy/site/internal/handlers"
	"codeberg.org/barrioenergy/site/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRoutes(e *echo.Echo, s *site) {
	e.GET("/health", s.health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{})))

	// Newsletter
	e.POST("/subscribe", s.subscribe.Subscribe)
	e.GET("/subscribe", s.subscribe.Resolve)
	e.GET(handlers.ResultPath, s.subscribe.Result)

	// News
	e.GET("/news", s.news.List)
	e.GET("/news/:slug", s.news.Show)

	// Admin
	e.POST("/admin/login", s.admin.Login)
	admin := e.Group("/admin", middleware.RequireAdmin(s.sessions))
	admin.POST("/logout", s.admin.Logout)
	admin.GET("/subscribers", s.admin.Subscribers)
	admin.POST("/send", s.admin.Send)
	admin.POST("/articles", s.admin.Publish)
}
