// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package registry owns the newsletter subscriber collection and its
// pending -> confirmed -> unsubscribed transitions.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"codeberg.org/barrioenergy/site/internal/models"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrUnknownToken       = errors.New("unknown confirmation token")
	ErrInvalidAction      = errors.New("invalid action")
	ErrStorageUnavailable = errors.New("subscriber storage unavailable")
)

// maxTokenAttempts bounds re-draws when a fresh token collides with an issued one.
const maxTokenAttempts = 5

// Store loads and replaces the whole subscriber document.
type Store interface {
	Load(ctx context.Context) (*models.Registry, error)
	Save(ctx context.Context, doc *models.Registry) error
}

// Notifier delivers the confirmation message for a freshly issued token.
// Implementations must not block on delivery.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, email, token string)
}

// Action is what a subscriber asks for when following an emailed link.
type Action string

const (
	ActionConfirm     Action = "confirm"
	ActionUnsubscribe Action = "unsubscribe"
)

// ParseAction converts a query value into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionConfirm, ActionUnsubscribe:
		return Action(s), nil
	}
	return "", ErrInvalidAction
}

// Outcome describes what Register did.
type Outcome int

const (
	// OutcomePending means a new confirmation token was issued and mailed.
	OutcomePending Outcome = iota
	// OutcomeCheckEmail means a confirmation is already outstanding.
	OutcomeCheckEmail
	// OutcomeAlreadySubscribed means the address is confirmed already.
	OutcomeAlreadySubscribed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCheckEmail:
		return "check_email"
	case OutcomeAlreadySubscribed:
		return "already_subscribed"
	}
	return "unknown"
}

// Pending reports whether the subscriber still has to confirm.
func (o Outcome) Pending() bool {
	return o == OutcomePending || o == OutcomeCheckEmail
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithTokenGenerator overrides the confirmation token source.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.newToken = gen }
}

// Registry is the single writer of the subscriber document.
//
// Every mutation reads the whole document, changes it in memory and writes it
// back while holding mu, so writes are linearized within one process. Two
// processes sharing the same document can still lose updates.
type Registry struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	newToken func() (string, error)
	mu       sync.Mutex
}

// New creates a Registry backed by store. Confirmation messages go to notifier.
func New(store Store, notifier Notifier, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		newToken: NewToken,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds email to the registry or re-activates an unsubscribed one.
func (r *Registry) Register(ctx context.Context, rawEmail string) (Outcome, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return OutcomePending, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return OutcomePending, err
	}

	idx := doc.IndexOf(email)
	if idx >= 0 {
		switch doc.Subscribers[idx].Status {
		case models.StatusConfirmed:
			return OutcomeAlreadySubscribed, nil
		case models.StatusPending:
			return OutcomeCheckEmail, nil
		}
	}

	token, err := r.issueToken(doc)
	if err != nil {
		return OutcomePending, err
	}

	if idx < 0 {
		doc.Subscribers = append(doc.Subscribers, models.Subscriber{
			Email:        email,
			SubscribedAt: r.now().UTC(),
			Status:       models.StatusPending,
			ConfirmToken: token,
		})
	} else {
		sub := &doc.Subscribers[idx]
		sub.Status = models.StatusPending
		sub.ConfirmToken = token
		sub.ConfirmedAt = nil
	}

	if err := r.save(ctx, doc); err != nil {
		return OutcomePending, err
	}

	slog.InfoContext(ctx, "subscriber_registered", "email", email, "resubscribe", idx >= 0)

	if r.notifier != nil {
		r.notifier.NotifyConfirmation(ctx, email, token)
	}

	return OutcomePending, nil
}

// Resolve applies action to the subscriber holding token.
// Both actions consume the token, so a replayed link yields ErrUnknownToken.
func (r *Registry) Resolve(ctx context.Context, token string, action Action) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	if token == "" {
		return ErrUnknownToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := doc.IndexOfToken(token)
	if idx < 0 {
		return ErrUnknownToken
	}

	sub := &doc.Subscribers[idx]
	switch action {
	case ActionConfirm:
		now := r.now().UTC()
		sub.Status = models.StatusConfirmed
		sub.ConfirmedAt = &now
	case ActionUnsubscribe:
		sub.Status = models.StatusUnsubscribed
	}
	sub.ConfirmToken = ""

	if err := r.save(ctx, doc); err != nil {
		return err
	}

	slog.InfoContext(ctx, "subscriber_resolved", "email", sub.Email, "action", string(action))
	return nil
}

// List returns a snapshot of every subscriber record.
func (r *Registry) List(ctx context.Context) ([]models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Clone().Subscribers, nil
}

// ConfirmedEmails returns the addresses of all confirmed subscribers.
func (r *Registry) ConfirmedEmails(ctx context.Context) ([]string, error) {
	subs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return ConfirmedEmails(subs), nil
}

// ConfirmedEmails filters subs down to the emails of confirmed records,
// keeping collection order.
func ConfirmedEmails(subs []models.Subscriber) []string {
	emails := make([]string, 0, len(subs))
	for _, s := range subs {
		if s.Status == models.StatusConfirmed {
			emails = append(emails, s.Email)
		}
	}
	return emails
}

func (r *Registry) load(ctx context.Context) (*models.Registry, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrStorageUnavailable, err)
	}
	if doc == nil {
		doc = &models.Registry{}
	}
	return doc, nil
}

func (r *Registry) save(ctx context.Context, doc *models.Registry) error {
	if err := r.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("%w: save: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// issueToken draws a token that no record in doc currently holds.
func (r *Registry) issueToken(doc *models.Registry) (string, error) {
	for range maxTokenAttempts {
		token, err := r.newToken()
		if err != nil {
			return "", fmt.Errorf("generating token: %w", err)
		}
		if token != "" && doc.IndexOfToken(token) < 0 {
			return token, nil
		}
	}
	return "", errors.New("generating token: too many collisions")
}
