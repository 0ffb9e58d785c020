// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Storage backends for the subscriber registry.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// TLS modes. Off serves plain HTTP, for use behind a terminating proxy.
const (
	TLSOff    = "off"
	TLSManual = "manual"
	TLSACME   = "acme"
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	TLS      TLSConfig
	Log      LogConfig
	Storage  StorageConfig
	SMTP     SMTPConfig
	Admin    AdminConfig
	Session  SessionConfig
	Articles ArticlesConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

// Secure reports whether the site is served over HTTPS.
func (c ServerConfig) Secure() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

type TLSConfig struct {
	Mode     string // off, manual, acme
	CertDir  string // ACME certificate cache
	Email    string // ACME account email
	CertFile string
	KeyFile  string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type StorageConfig struct {
	Backend     string // json, sqlite
	Path        string // subscriber document for the json backend
	DatabaseDSN string // database for the sqlite backend
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string // empty logs messages instead of sending them
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
	Timeout  time.Duration // per message
}

type AdminConfig struct {
	Password     string // plain text, hashed at startup
	PasswordHash string // bcrypt hash, preferred over Password
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Session max age in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
}

type ArticlesConfig struct {
	Path string
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     strings.TrimSuffix(cmd.String("base-url"), "/"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		TLS: TLSConfig{
			Mode:     strings.ToLower(cmd.String("tls-mode")),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(cmd.String("storage-backend")),
			Path:        cmd.String("subscribers-file"),
			DatabaseDSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
			Timeout:  cmd.Duration("smtp-timeout"),
		},
		Admin: AdminConfig{
			Password:     cmd.String("admin-password"),
			PasswordHash: cmd.String("admin-password-hash"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
		Articles: ArticlesConfig{
			Path: cmd.String("articles-file"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)", c.Storage.Backend, BackendJSON, BackendSQLite)
	}
	switch c.TLS.Mode {
	case TLSOff, "":
	case TLSManual:
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("manual TLS mode requires tls-cert-file and tls-key-file")
		}
	case TLSACME:
		if c.TLS.Email == "" {
			return fmt.Errorf("acme TLS mode requires tls-email")
		}
		if IsLocalhost(c.Server.Host) || net.ParseIP(c.Server.Host) != nil {
			return fmt.Errorf("acme TLS mode requires a public host name, got %q", c.Server.Host)
		}
	default:
		return fmt.Errorf("unknown TLS mode %q (want off, manual or acme)", c.TLS.Mode)
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return fmt.Errorf("admin password or password hash is required")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp from address is required when smtp host is set")
	}
	return nil
}

// buildBaseURL derives the public URL from the listen address and TLS mode.
// Deployments behind a TLS proxy set base-url explicitly.
func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	switch cfg.TLS.Mode {
	case TLSACME:
		// ACME always serves on 443.
		return fmt.Sprintf("https://%s", host)
	case TLSManual:
		if cfg.Server.Port == 443 {
			return fmt.Sprintf("https://%s", host)
		}
		return fmt.Sprintf("https://%s:%d", host, cfg.Server.Port)
	}

	if cfg.Server.Port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL used in emailed links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		// TLS flags
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   TLSOff,
			Usage:   "TLS mode (off, manual, acme)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for cached ACME certificates",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Contact email for Let's Encrypt (acme mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		// Storage flags
		&cli.StringFlag{
			Name:    "storage-backend",
			Value:   BackendJSON,
			Usage:   "Subscriber storage backend (json, sqlite)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_BACKEND"), toml.TOML("storage.backend", configFile)),
		},
		&cli.StringFlag{
			Name:    "subscribers-file",
			Value:   "./data/subscribers.json",
			Usage:   "Subscriber document for the json backend",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SUBSCRIBERS_FILE"), toml.TOML("storage.path", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/site.db",
			Usage:   "Database DSN for the sqlite backend",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("storage.database_dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "articles-file",
			Value:   "./data/articles.json",
			Usage:   "News article document",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ARTICLES_FILE"), toml.TOML("articles.path", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (empty logs messages instead of sending)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Barrio Energy",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.DurationFlag{
			Name:    "smtp-timeout",
			Value:   30 * time.Second,
			Usage:   "Timeout for delivering one message",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TIMEOUT"), toml.TOML("smtp.timeout", configFile)),
		},
		// Admin flags
		&cli.StringFlag{
			Name:    "admin-password",
			Usage:   "Admin password (prefer admin-password-hash)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_PASSWORD"), toml.TOML("admin.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-password-hash",
			Usage:   "Bcrypt hash of the admin password (see hash-password)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_PASSWORD_HASH"), toml.TOML("admin.password_hash", configFile)),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_admin_session",
			Usage:   "Session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   43200, // 12 hours in seconds
			Usage:   "Session max age in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_MAX_AGE"), toml.TOML("session.max_age", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_HASH_KEY"), toml.TOML("session.hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_BLOCK_KEY"), toml.TOML("session.block_key", configFile)),
		},
	}
}
