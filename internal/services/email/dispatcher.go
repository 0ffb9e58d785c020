// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"codeberg.org/barrioenergy/site/internal/metrics"
)

// Message kinds, used as metric labels.
const (
	KindConfirmation = "confirmation"
	KindBroadcast    = "broadcast"
)

// Dispatcher sends messages in the background. A failed send is logged and
// counted; it never reaches the caller.
type Dispatcher struct {
	sender  Sender
	metrics *metrics.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps sender. m may be nil.
func NewDispatcher(sender Sender, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{sender: sender, metrics: m, timeout: timeout}
}

// Dispatch queues a message and returns immediately. ctx values such as the
// locale and request ID are kept, its cancellation is not.
func (d *Dispatcher) Dispatch(ctx context.Context, kind string, to []string, subject, htmlBody string) {
	ctx = context.WithoutCancel(ctx)
	recipients := append([]string(nil), to...)

	d.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, recipients, subject, htmlBody); err != nil {
			slog.ErrorContext(ctx, "mail_send_failed",
				"kind", kind,
				"recipients", len(recipients),
				"error", err,
			)
			if d.metrics != nil {
				d.metrics.MailFailures.WithLabelValues(kind).Inc()
			}
			return
		}

		slog.DebugContext(ctx, "mail_sent", "kind", kind, "recipients", len(recipients))
		if d.metrics != nil {
			d.metrics.MailSent.WithLabelValues(kind).Inc()
		}
	})
}

// Wait blocks until all dispatched messages have been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
