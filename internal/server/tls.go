// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"codeberg.org/barrioenergy/site/internal/config"
	"golang.org/x/crypto/acme/autocert"
)

// tlsSetup is the resolved listener configuration.
type tlsSetup struct {
	config   *tls.Config  // nil serves plain HTTP
	redirect http.Handler // ACME challenge and HTTPS redirect on :80
	addr     string
}

// setupTLS resolves cfg.TLS into listener settings.
func setupTLS(cfg *config.Config) (*tlsSetup, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	switch cfg.TLS.Mode {
	case config.TLSManual:
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}
		slog.Info("tls_manual", "cert", cfg.TLS.CertFile, "fingerprint", fingerprint(&cert))
		return &tlsSetup{config: newTLSConfig(&cert), addr: addr}, nil

	case config.TLSACME:
		dir := filepath.Join(cfg.TLS.CertDir, "acme")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create ACME cert directory: %w", err)
		}
		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      cfg.TLS.Email,
			Cache:      autocert.DirCache(dir),
			HostPolicy: autocert.HostWhitelist(cfg.Server.Host),
		}
		tlsConfig := manager.TLSConfig()
		tlsConfig.MinVersion = tls.VersionTLS12

		slog.Info("tls_acme", "host", cfg.Server.Host, "email", cfg.TLS.Email)
		return &tlsSetup{
			config:   tlsConfig,
			redirect: manager.HTTPHandler(nil),
			addr:     ":443",
		}, nil

	default:
		return &tlsSetup{addr: addr}, nil
	}
}

func newTLSConfig(cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// fingerprint returns the SHA-256 of the leaf certificate in hex.
func fingerprint(cert *tls.Certificate) string {
	if len(cert.Certificate) == 0 {
		return ""
	}
	sum := sha256.Sum256(cert.Certificate[0])
	return hex.EncodeToString(sum[:])
}
