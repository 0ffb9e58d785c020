// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP server is configured.
type LogSender struct{}

// Send logs the recipient count and subject. Bodies carry action tokens
// and are never logged.
func (LogSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	slog.InfoContext(ctx, "mail_logged",
		"recipients", len(to),
		"subject", subject,
		"body_bytes", len(htmlBody),
	)
	return nil
}
