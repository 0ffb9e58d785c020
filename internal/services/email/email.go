// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers confirmation messages and newsletters.
package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/barrioenergy/site/internal/config"
	"github.com/wneessen/go-mail"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("no recipients")

const defaultTimeout = 30 * time.Second

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// SMTPSender sends mail through an SMTP server.
type SMTPSender struct {
	cfg *config.SMTPConfig
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &SMTPSender{cfg: cfg}, nil
}

// Send delivers the message. A single recipient is addressed directly;
// several recipients go in Bcc with the sender as the visible To.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	msg, err := s.message(to, subject, htmlBody)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (s *SMTPSender) message(to []string, subject, htmlBody string) (*mail.Msg, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if len(to) == 1 {
		if err := msg.To(to[0]); err != nil {
			return nil, fmt.Errorf("setting to address: %w", err)
		}
	} else {
		if err := msg.To(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting to address: %w", err)
		}
		if err := msg.Bcc(to...); err != nil {
			return nil, fmt.Errorf("setting bcc addresses: %w", err)
		}
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	return msg, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(timeout),
	}

	// Use implicit TLS (SSL) for port 465, STARTTLS for others
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}
