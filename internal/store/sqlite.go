// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"codeberg.org/barrioenergy/site/internal/models"
	"github.com/vinovest/sqlx"
)

// SQLite keeps the registry in the subscribers table. Save replaces every
// row inside one transaction, so the document is swapped wholesale.
type SQLite struct {
	db *sqlx.DB
}

// NewSQLite creates a store on an opened and migrated database.
func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{db: db}
}

type subscriberRow struct { //nolint:govet // fieldalignment: readability over optimization
	Position     int64          `db:"position"`
	Email        string         `db:"email"`
	Status       string         `db:"status"`
	ConfirmToken sql.NullString `db:"confirm_token"`
	SubscribedAt time.Time      `db:"subscribed_at"`
	ConfirmedAt  sql.NullTime   `db:"confirmed_at"`
}

func (r subscriberRow) toModel() models.Subscriber {
	sub := models.Subscriber{
		Email:        r.Email,
		SubscribedAt: r.SubscribedAt.UTC(),
		Status:       models.SubscriberStatus(r.Status),
		ConfirmToken: r.ConfirmToken.String,
	}
	if r.ConfirmedAt.Valid {
		at := r.ConfirmedAt.Time.UTC()
		sub.ConfirmedAt = &at
	}
	return sub
}

func rowFromModel(pos int, s models.Subscriber) subscriberRow {
	row := subscriberRow{
		Position:     int64(pos),
		Email:        s.Email,
		Status:       string(s.Status),
		ConfirmToken: sql.NullString{String: s.ConfirmToken, Valid: s.ConfirmToken != ""},
		SubscribedAt: s.SubscribedAt.UTC(),
	}
	if s.ConfirmedAt != nil {
		row.ConfirmedAt = sql.NullTime{Time: s.ConfirmedAt.UTC(), Valid: true}
	}
	return row
}

// Load reads all subscribers in insertion order.
func (s *SQLite) Load(ctx context.Context) (*models.Registry, error) {
	var rows []subscriberRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT position, email, status, confirm_token, subscribed_at, confirmed_at
		 FROM subscribers ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("selecting subscribers: %w", err)
	}

	doc := &models.Registry{Subscribers: make([]models.Subscriber, len(rows))}
	for i, row := range rows {
		doc.Subscribers[i] = row.toModel()
	}
	return doc, nil
}

// Save replaces all subscriber rows with doc.
func (s *SQLite) Save(ctx context.Context, doc *models.Registry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subscribers`); err != nil {
		return fmt.Errorf("clearing subscribers: %w", err)
	}

	for i, sub := range doc.Subscribers {
		row := rowFromModel(i, sub)
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO subscribers (position, email, status, confirm_token, subscribed_at, confirmed_at)
			 VALUES (:position, :email, :status, :confirm_token, :subscribed_at, :confirmed_at)`, row)
		if err != nil {
			return fmt.Errorf("inserting subscriber %s: %w", sub.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing subscribers: %w", err)
	}
	return nil
}
