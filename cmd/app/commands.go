// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"codeberg.org/barrioenergy/site/internal/database"
	"codeberg.org/barrioenergy/site/internal/services/auth"
	"github.com/urfave/cli/v3"
)

// hashPasswordCommand prints a bcrypt hash for admin-password-hash. The
// password comes from the first argument or, if absent, from stdin.
func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Print a bcrypt hash for the admin-password-hash setting",
		ArgsUsage: "[password]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			password := cmd.Args().First()
			if password == "" {
				var err error
				if password, err = readLine(cmd.Root().Reader); err != nil {
					return err
				}
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, hash)
			return err
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// migrateCommand manages the schema of the sqlite backend.
func migrateCommand() *cli.Command {
	run := func(name string, fn func(*sql.DB) error) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: "Migrate the database " + name,
			Action: func(_ context.Context, cmd *cli.Command) error {
				db, err := database.Connect(cmd.String("database-dsn"))
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer func() {
					_ = db.Close()
				}()
				return fn(db.DB)
			},
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the sqlite schema (database-dsn)",
		Commands: []*cli.Command{
			run("up", database.RunMigrations),
			run("down", database.MigrateDown),
			run("reset", database.MigrateReset),
		},
	}
}
