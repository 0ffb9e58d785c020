// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false}, // not a real localhost
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		server   ServerConfig
		tlsMode  string
		expected string
	}{
		{"default port hidden", ServerConfig{Host: "localhost", Port: 80}, "", "http://localhost"},
		{"custom port", ServerConfig{Host: "localhost", Port: 8080}, TLSOff, "http://localhost:8080"},
		{"wildcard host", ServerConfig{Host: "0.0.0.0", Port: 8080}, "", "http://localhost:8080"},
		{"named host", ServerConfig{Host: "barrio.example", Port: 3000}, "", "http://barrio.example:3000"},
		{"manual tls", ServerConfig{Host: "barrio.example", Port: 8443}, TLSManual, "https://barrio.example:8443"},
		{"manual tls default port", ServerConfig{Host: "barrio.example", Port: 443}, TLSManual, "https://barrio.example"},
		{"acme ignores port", ServerConfig{Host: "barrio.example", Port: 8080}, TLSACME, "https://barrio.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: tt.server, TLS: TLSConfig{Mode: tt.tlsMode}}
			assert.Equal(t, tt.expected, buildBaseURL(cfg))
		})
	}
}

func TestServerConfig_Secure(t *testing.T) {
	assert.True(t, ServerConfig{BaseURL: "https://barrio.example"}.Secure())
	assert.False(t, ServerConfig{BaseURL: "http://localhost:8080"}.Secure())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Backend: BackendJSON},
			Admin:   AdminConfig{Password: "secret"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"sqlite backend", func(c *Config) { c.Storage.Backend = BackendSQLite }, ""},
		{"hash only", func(c *Config) { c.Admin = AdminConfig{PasswordHash: "$2a$10$x"} }, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "unknown storage backend"},
		{"no admin password", func(c *Config) { c.Admin = AdminConfig{} }, "admin password"},
		{"smtp without from", func(c *Config) { c.SMTP.Host = "smtp.example.com" }, "smtp from address"},
		{"unknown tls mode", func(c *Config) { c.TLS.Mode = "selfsigned" }, "unknown TLS mode"},
		{"manual tls without files", func(c *Config) { c.TLS.Mode = TLSManual }, "tls-cert-file"},
		{"manual tls", func(c *Config) { c.TLS = TLSConfig{Mode: TLSManual, CertFile: "c.pem", KeyFile: "k.pem"} }, ""},
		{"acme without email", func(c *Config) { c.TLS.Mode = TLSACME; c.Server.Host = "barrio.example" }, "tls-email"},
		{"acme on localhost", func(c *Config) { c.TLS = TLSConfig{Mode: TLSACME, Email: "ops@barrio.example"} }, "public host name"},
		{"acme on ip", func(c *Config) {
			c.TLS = TLSConfig{Mode: TLSACME, Email: "ops@barrio.example"}
			c.Server.Host = "203.0.113.7"
		}, "public host name"},
		{"acme", func(c *Config) {
			c.TLS = TLSConfig{Mode: TLSACME, Email: "ops@barrio.example"}
			c.Server.Host = "barrio.example"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlags(t *testing.T) {
	flagNames := make(map[string]bool)
	for _, f := range Flags() {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{
		"host", "port", "base-url", "log-level", "storage-backend", "subscribers-file",
		"database-dsn", "articles-file", "smtp-host", "smtp-timeout", "admin-password",
		"admin-password-hash", "session-cookie-name", "session-hash-key", "tls-mode", "tls-email",
	} {
		assert.True(t, flagNames[name], "should have %s flag", name)
	}
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "text", cfg.Log.Format)
			assert.Equal(t, TLSOff, cfg.TLS.Mode)
			assert.Equal(t, BackendJSON, cfg.Storage.Backend)
			assert.Equal(t, "./data/subscribers.json", cfg.Storage.Path)
			assert.Equal(t, "./data/articles.json", cfg.Articles.Path)
			assert.Equal(t, 587, cfg.SMTP.Port)
			assert.True(t, cfg.SMTP.TLS)
			assert.Equal(t, 30*time.Second, cfg.SMTP.Timeout)
			assert.Equal(t, "_admin_session", cfg.Session.CookieName)
			assert.Equal(t, 43200, cfg.Session.MaxAge)
			return nil
		},
	}

	require.NoError(t, app.Run(context.Background(), []string{"test"}))
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://barrio.example", cfg.Server.BaseURL)
			assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
			assert.Equal(t, "./data/test.db", cfg.Storage.DatabaseDSN)
			assert.Equal(t, 5*time.Second, cfg.SMTP.Timeout)
			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://barrio.example/",
		"--storage-backend", "SQLite",
		"--database-dsn", "./data/test.db",
		"--smtp-timeout", "5s",
	}
	require.NoError(t, app.Run(context.Background(), args))
}

func TestNewFromCLI_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer func() {
		_ = os.Chdir(oldWd)
	}()

	content := `
[storage]
backend = "sqlite"

[admin]
password_hash = "$2a$10$abcdefghijklmnopqrstuv"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)
			assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
			assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", cfg.Admin.PasswordHash)
			return nil
		},
	}

	require.NoError(t, app.Run(context.Background(), []string{"test"}))
}
