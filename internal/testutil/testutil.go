// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"codeberg.org/barrioenergy/site/internal/database"
	"codeberg.org/barrioenergy/site/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// CaptureLogs routes the default slog logger into a buffer as JSON lines
// until the test ends. Tests using it must not run in parallel.
func CaptureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(prev)
	})
	return &buf
}

// NewTestDB creates an in-memory SQLite database with migrations applied.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MemoryStore is an in-memory registry store. Set LoadErr or SaveErr to
// simulate an unavailable backend.
type MemoryStore struct {
	doc     *models.Registry
	LoadErr error
	SaveErr error
	Saves   int
	mu      sync.Mutex
}

// NewMemoryStore returns a store seeded with subs.
func NewMemoryStore(subs ...models.Subscriber) *MemoryStore {
	return &MemoryStore{doc: &models.Registry{Subscribers: subs}}
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(_ context.Context) (*models.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.doc.Clone(), nil
}

// Save replaces the stored document with a copy of doc.
func (s *MemoryStore) Save(_ context.Context, doc *models.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.doc = doc.Clone()
	s.Saves++
	return nil
}

// Snapshot returns a copy of the stored subscribers.
func (s *MemoryStore) Snapshot() []models.Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone().Subscribers
}

// Notification is one recorded confirmation request.
type Notification struct {
	Email string
	Token string
}

// RecordingNotifier records confirmation requests instead of sending mail.
type RecordingNotifier struct {
	calls []Notification
	mu    sync.Mutex
}

// NotifyConfirmation records the request.
func (n *RecordingNotifier) NotifyConfirmation(_ context.Context, email, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Notification{Email: email, Token: token})
}

// Calls returns all recorded requests.
func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.calls...)
}

// Last returns the most recent request. It fails the test if there is none.
func (n *RecordingNotifier) Last(t *testing.T) Notification {
	t.Helper()
	calls := n.Calls()
	require.NotEmpty(t, calls, "no confirmation was sent")
	return calls[len(calls)-1]
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// SentMessage is one message captured by RecordingSender.
type SentMessage struct {
	To      []string
	Subject string
	Body    string
}

// RecordingSender captures outgoing mail. Set Err to simulate a failing server.
type RecordingSender struct {
	Err  error
	sent []SentMessage
	mu   sync.Mutex
}

// Send records the message and returns Err.
func (s *RecordingSender) Send(_ context.Context, to []string, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, SentMessage{To: append([]string(nil), to...), Subject: subject, Body: htmlBody})
	return nil
}

// Sent returns all recorded messages.
func (s *RecordingSender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.sent...)
}
