// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

import "context"

// Result statuses shown after following an emailed link.
const (
	StatusConfirmed    = "confirmed"
	StatusUnsubscribed = "unsubscribed"
	StatusInvalid      = "invalid"
	StatusError        = "error"
)

// KnownStatus reports whether status has its own result page.
func KnownStatus(status string) bool {
	switch status {
	case StatusConfirmed, StatusUnsubscribed, StatusInvalid, StatusError:
		return true
	}
	return false
}

// resultStatus maps unknown statuses to the error page.
func resultStatus(status string) string {
	if !KnownStatus(status) {
		return StatusError
	}
	return status
}

func resultTitle(ctx context.Context, status string) string {
	return T(ctx, "result_"+resultStatus(status)+"_title")
}

func resultText(ctx context.Context, status string) string {
	return T(ctx, "result_"+resultStatus(status)+"_text")
}
