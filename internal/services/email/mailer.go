// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"codeberg.org/barrioenergy/site/internal/i18n"
	"codeberg.org/barrioenergy/site/internal/registry"
	"codeberg.org/barrioenergy/site/internal/templates"
)

var _ registry.Notifier = (*Mailer)(nil)

// Mailer composes site mail and hands it to a Dispatcher.
type Mailer struct {
	dispatcher *Dispatcher
	baseURL    string
}

// NewMailer creates a mailer whose links point at baseURL.
func NewMailer(d *Dispatcher, baseURL string) *Mailer {
	return &Mailer{
		dispatcher: d,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// ActionURL builds the link a subscriber follows to confirm or unsubscribe.
func ActionURL(baseURL, token string, action registry.Action) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("action", string(action))
	return strings.TrimSuffix(baseURL, "/") + "/subscribe?" + q.Encode()
}

// ConfirmationMessage returns the localized subject and HTML body for token.
func (m *Mailer) ConfirmationMessage(ctx context.Context, token string) (string, string, error) {
	body, err := templates.RenderString(ctx, templates.ConfirmationEmail(
		ActionURL(m.baseURL, token, registry.ActionConfirm),
		ActionURL(m.baseURL, token, registry.ActionUnsubscribe),
	))
	if err != nil {
		return "", "", fmt.Errorf("rendering confirmation email: %w", err)
	}
	return i18n.T(ctx, "confirm_email_subject"), body, nil
}

// NotifyConfirmation sends the confirmation message for a fresh token.
func (m *Mailer) NotifyConfirmation(ctx context.Context, email, token string) {
	subject, body, err := m.ConfirmationMessage(ctx, token)
	if err != nil {
		slog.ErrorContext(ctx, "mail_compose_failed", "kind", KindConfirmation, "error", err)
		return
	}
	m.dispatcher.Dispatch(ctx, KindConfirmation, []string{email}, subject, body)
}

// Broadcast sends a newsletter to recipients in one message.
func (m *Mailer) Broadcast(ctx context.Context, recipients []string, subject, bodyHTML string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	body, err := templates.RenderString(ctx, templates.Broadcast(subject, bodyHTML))
	if err != nil {
		return fmt.Errorf("rendering broadcast: %w", err)
	}

	m.dispatcher.Dispatch(ctx, KindBroadcast, recipients, subject, body)
	slog.InfoContext(ctx, "broadcast_dispatched", "recipients", len(recipients))
	return nil
}
