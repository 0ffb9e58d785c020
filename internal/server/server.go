// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the site together and runs the HTTP server.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/barrioenergy/site/internal/articles"
	"codeberg.org/barrioenergy/site/internal/config"
	"codeberg.org/barrioenergy/site/internal/database"
	"codeberg.org/barrioenergy/site/internal/handlers"
	"codeberg.org/barrioenergy/site/internal/i18n"
	"codeberg.org/barrioenergy/site/internal/metrics"
	"codeberg.org/barrioenergy/site/internal/registry"
	"codeberg.org/barrioenergy/site/internal/services/auth"
	"codeberg.org/barrioenergy/site/internal/services/email"
	"codeberg.org/barrioenergy/site/internal/services/session"
	"codeberg.org/barrioenergy/site/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"storage", cfg.Storage.Backend,
	)

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}

	subscribers, closeStore, err := openStore(&cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	sender, err := newSender(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to configure mail: %w", err)
	}

	s, err := newSite(cfg, subscribers, sender)
	if err != nil {
		return err
	}

	e := newEcho(cfg, s)
	err = startWithGracefulShutdown(ctx, e, cfg)

	// Let queued mail finish before the store closes.
	s.dispatcher.Wait()
	return err
}

// site holds the wired collaborators of a running server.
type site struct {
	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics
	dispatcher   *email.Dispatcher
	sessions     *session.Manager
	health       *handlers.Handlers
	subscribe    *handlers.SubscribeHandlers
	admin        *handlers.AdminHandlers
	news         *handlers.NewsHandlers
}

func newSite(cfg *config.Config, subscribers registry.Store, sender email.Sender) (*site, error) {
	promRegistry := metrics.NewRegistry()
	m := metrics.New(promRegistry)

	dispatcher := email.NewDispatcher(sender, cfg.SMTP.Timeout, m)
	mailer := email.NewMailer(dispatcher, cfg.Server.BaseURL)
	reg := registry.New(subscribers, mailer)

	authSvc, err := auth.NewService(&cfg.Admin)
	if err != nil {
		return nil, fmt.Errorf("failed to configure admin auth: %w", err)
	}

	sessions, err := session.NewManager(&cfg.Session, cfg.Server.Secure())
	if err != nil {
		return nil, fmt.Errorf("failed to configure sessions: %w", err)
	}

	news := articles.NewStore(cfg.Articles.Path)

	return &site{
		promRegistry: promRegistry,
		metrics:      m,
		dispatcher:   dispatcher,
		sessions:     sessions,
		health:       handlers.New(),
		subscribe:    handlers.NewSubscribe(reg, m),
		news:         handlers.NewNews(news),
		admin: handlers.NewAdmin(handlers.AdminDeps{
			Auth:        authSvc,
			Sessions:    sessions,
			Registry:    reg,
			Broadcaster: mailer,
			Articles:    news,
			Metrics:     m,
		}),
	}, nil
}

// openStore opens the configured registry backend. The returned func
// releases it.
func openStore(cfg *config.StorageConfig) (registry.Store, func(), error) {
	if cfg.Backend != config.BackendSQLite {
		slog.Info("using json storage", "path", cfg.Path)
		return store.NewJSONFile(cfg.Path), func() {}, nil
	}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	slog.Info("using sqlite storage", "dsn", cfg.DatabaseDSN)

	return store.NewSQLite(db), func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}, nil
}

// newSender returns an SMTP sender, or a logging one when no host is set.
func newSender(cfg *config.SMTPConfig) (email.Sender, error) {
	if cfg.Host == "" {
		slog.Warn("smtp host not configured, mail will be logged instead of sent")
		return email.LogSender{}, nil
	}
	return email.NewSMTPSender(cfg)
}

func newEcho(cfg *config.Config, s *site) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler
	e.Server.ReadHeaderTimeout = 10 * time.Second

	setupMiddleware(e, cfg, s.metrics)
	setupRoutes(e, s)
	return e
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	setup, err := setupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL, "addr", setup.addr)
		var err error
		if setup.config == nil {
			err = e.Start(setup.addr)
		} else {
			err = serveTLS(e, setup.addr, setup.config)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// HTTP-01 challenges and the HTTPS redirect for ACME.
	var redirect *http.Server
	if setup.redirect != nil {
		redirect = &http.Server{
			Addr:              ":80",
			Handler:           setup.redirect,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http redirect active", "addr", redirect.Addr)
			if err := redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if redirect != nil {
		if err := redirect.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// serveTLS serves e on addr with a custom TLS configuration.
func serveTLS(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.Server.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
