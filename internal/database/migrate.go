// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func withGoose(db *sql.DB, fn func(*sql.DB, string, ...goose.OptionsFunc) error) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return fn(db, "migrations")
}

// RunMigrations applies all pending migrations.
func RunMigrations(db *sql.DB) error {
	return withGoose(db, goose.Up)
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB) error {
	return withGoose(db, goose.Down)
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sql.DB) error {
	return withGoose(db, goose.Reset)
}
