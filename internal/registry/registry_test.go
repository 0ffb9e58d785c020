// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/barrioenergy/site/internal/models"
	"codeberg.org/barrioenergy/site/internal/registry"
	"codeberg.org/barrioenergy/site/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

func newTestRegistry(t *testing.T, subs ...models.Subscriber) (*registry.Registry, *testutil.MemoryStore, *testutil.RecordingNotifier) {
	t.Helper()
	store := testutil.NewMemoryStore(subs...)
	notifier := &testutil.RecordingNotifier{}
	reg := registry.New(store, notifier, registry.WithClock(func() time.Time { return fixedNow }))
	return reg, store, notifier
}

func TestRegister_NewEmail(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	outcome, err := reg.Register(ctx, "jane@example.com")

	require.NoError(t, err)
	assert.Equal(t, registry.OutcomePending, outcome)
	assert.True(t, outcome.Pending())

	subs := store.Snapshot()
	require.Len(t, subs, 1)
	assert.Equal(t, "jane@example.com", subs[0].Email)
	assert.Equal(t, models.StatusPending, subs[0].Status)
	assert.NotEmpty(t, subs[0].ConfirmToken)
	assert.Equal(t, fixedNow, subs[0].SubscribedAt)
	assert.Nil(t, subs[0].ConfirmedAt)

	last := notifier.Last(t)
	assert.Equal(t, "jane@example.com", last.Email)
	assert.Equal(t, subs[0].ConfirmToken, last.Token)
}

func TestRegister_DistinctEmails(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = reg.Register(ctx, "b@example.com")
	require.NoError(t, err)

	subs := store.Snapshot()
	require.Len(t, subs, 2)
	assert.Equal(t, "a@example.com", subs[0].Email)
	assert.Equal(t, "b@example.com", subs[1].Email)
	assert.NotEqual(t, subs[0].ConfirmToken, subs[1].ConfirmToken)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, " A@B.com ")
	require.NoError(t, err)
	outcome, err := reg.Register(ctx, "a@b.com")
	require.NoError(t, err)

	assert.Equal(t, registry.OutcomeCheckEmail, outcome)
	subs := store.Snapshot()
	require.Len(t, subs, 1)
	assert.Equal(t, "a@b.com", subs[0].Email)
}

func TestRegister_InvalidEmail(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "bad-email")

	require.ErrorIs(t, err, registry.ErrInvalidEmail)
	assert.Zero(t, store.Saves)
	assert.Empty(t, notifier.Calls())

	subs, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestRegister_InvalidEmailSkipsStorage(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	store.LoadErr = errors.New("disk gone")

	_, err := reg.Register(context.Background(), "not an email")

	require.ErrorIs(t, err, registry.ErrInvalidEmail)
	assert.NotErrorIs(t, err, registry.ErrStorageUnavailable)
}

func TestRegister_PendingDuplicateIsNoop(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.Register(ctx, "x@y.com")
	require.NoError(t, err)
	token := store.Snapshot()[0].ConfirmToken

	second, err := reg.Register(ctx, "x@y.com")
	require.NoError(t, err)

	assert.Equal(t, registry.OutcomePending, first)
	assert.Equal(t, registry.OutcomeCheckEmail, second)
	assert.Equal(t, first.Pending(), second.Pending())

	subs := store.Snapshot()
	require.Len(t, subs, 1)
	assert.Equal(t, token, subs[0].ConfirmToken)
	assert.Equal(t, 1, store.Saves)
	assert.Len(t, notifier.Calls(), 1)
}

func TestRegister_AlreadyConfirmed(t *testing.T) {
	confirmedAt := fixedNow.Add(-time.Hour)
	reg, store, notifier := newTestRegistry(t, models.Subscriber{
		Email:        "jane@example.com",
		SubscribedAt: fixedNow.Add(-2 * time.Hour),
		Status:       models.StatusConfirmed,
		ConfirmedAt:  &confirmedAt,
	})

	outcome, err := reg.Register(context.Background(), "Jane@Example.com")

	require.NoError(t, err)
	assert.Equal(t, registry.OutcomeAlreadySubscribed, outcome)
	assert.False(t, outcome.Pending())
	assert.Zero(t, store.Saves)
	assert.Empty(t, notifier.Calls())
}

func TestRegister_Resubscribe(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)
	firstToken := notifier.Last(t).Token
	originalSubscribedAt := store.Snapshot()[0].SubscribedAt

	require.NoError(t, reg.Resolve(ctx, firstToken, registry.ActionUnsubscribe))
	assert.Equal(t, models.StatusUnsubscribed, store.Snapshot()[0].Status)

	outcome, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)

	assert.Equal(t, registry.OutcomePending, outcome)
	subs := store.Snapshot()
	require.Len(t, subs, 1)
	assert.Equal(t, models.StatusPending, subs[0].Status)
	assert.NotEmpty(t, subs[0].ConfirmToken)
	assert.NotEqual(t, firstToken, subs[0].ConfirmToken)
	assert.Equal(t, originalSubscribedAt, subs[0].SubscribedAt)
	assert.Len(t, notifier.Calls(), 2)
	assert.Equal(t, subs[0].ConfirmToken, notifier.Last(t).Token)
}

func TestRegister_ResubscribeClearsConfirmedAt(t *testing.T) {
	confirmedAt := fixedNow.Add(-24 * time.Hour)
	reg, store, notifier := newTestRegistry(t, models.Subscriber{
		Email:        "jane@example.com",
		SubscribedAt: fixedNow.Add(-48 * time.Hour),
		Status:       models.StatusUnsubscribed,
		ConfirmedAt:  &confirmedAt,
	})

	outcome, err := reg.Register(context.Background(), "jane@example.com")

	require.NoError(t, err)
	assert.Equal(t, registry.OutcomePending, outcome)
	sub := store.Snapshot()[0]
	assert.Equal(t, models.StatusPending, sub.Status)
	assert.Nil(t, sub.ConfirmedAt)
	assert.Equal(t, sub.ConfirmToken, notifier.Last(t).Token)
}

func TestResolve_ConfirmedRecordHasNoUnsubscribeToken(t *testing.T) {
	// Confirming consumes the only token a subscriber holds, so the link
	// from the confirmation email no longer unsubscribes.
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)
	token := notifier.Last(t).Token
	require.NoError(t, reg.Resolve(ctx, token, registry.ActionConfirm))
	assert.Empty(t, store.Snapshot()[0].ConfirmToken)

	err = reg.Resolve(ctx, token, registry.ActionUnsubscribe)

	assert.ErrorIs(t, err, registry.ErrUnknownToken)
	assert.Equal(t, models.StatusConfirmed, store.Snapshot()[0].Status)
}

func TestRegister_StorageUnavailable(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	store.SaveErr = errors.New("read-only file system")

	_, err := reg.Register(context.Background(), "jane@example.com")

	require.ErrorIs(t, err, registry.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "read-only file system")
	assert.Empty(t, notifier.Calls())
	assert.Empty(t, store.Snapshot())
}

func TestRegister_TokenCollisionIsRedrawn(t *testing.T) {
	store := testutil.NewMemoryStore(models.Subscriber{
		Email:        "old@example.com",
		Status:       models.StatusPending,
		ConfirmToken: "taken",
	})
	tokens := []string{"taken", "fresh"}
	reg := registry.New(store, nil, registry.WithTokenGenerator(func() (string, error) {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok, nil
	}))

	_, err := reg.Register(context.Background(), "new@example.com")

	require.NoError(t, err)
	assert.Equal(t, "fresh", store.Snapshot()[1].ConfirmToken)
}

func TestRegister_TokenGeneratorFailure(t *testing.T) {
	store := testutil.NewMemoryStore()
	reg := registry.New(store, nil, registry.WithTokenGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	_, err := reg.Register(context.Background(), "new@example.com")

	require.Error(t, err)
	assert.Empty(t, store.Snapshot())
}

func TestResolve_Confirm(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)

	err = reg.Resolve(ctx, notifier.Last(t).Token, registry.ActionConfirm)

	require.NoError(t, err)
	sub := store.Snapshot()[0]
	assert.Equal(t, models.StatusConfirmed, sub.Status)
	assert.Empty(t, sub.ConfirmToken)
	require.NotNil(t, sub.ConfirmedAt)
	assert.Equal(t, fixedNow, *sub.ConfirmedAt)
}

func TestResolve_ConfirmReplayIsRejected(t *testing.T) {
	reg, _, notifier := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)
	token := notifier.Last(t).Token

	require.NoError(t, reg.Resolve(ctx, token, registry.ActionConfirm))

	err = reg.Resolve(ctx, token, registry.ActionConfirm)
	assert.ErrorIs(t, err, registry.ErrUnknownToken)
}

func TestResolve_UnsubscribePending(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)

	err = reg.Resolve(ctx, notifier.Last(t).Token, registry.ActionUnsubscribe)

	require.NoError(t, err)
	sub := store.Snapshot()[0]
	assert.Equal(t, models.StatusUnsubscribed, sub.Status)
	assert.Empty(t, sub.ConfirmToken)
}

func TestResolve_UnsubscribeConfirmedRecord(t *testing.T) {
	// Documents written before tokens were cleared on confirm can carry a
	// token on a confirmed record.
	confirmedAt := fixedNow.Add(-time.Hour)
	reg, store, _ := newTestRegistry(t, models.Subscriber{
		Email:        "legacy@example.com",
		Status:       models.StatusConfirmed,
		ConfirmToken: "legacy-token",
		ConfirmedAt:  &confirmedAt,
	})

	err := reg.Resolve(context.Background(), "legacy-token", registry.ActionUnsubscribe)

	require.NoError(t, err)
	assert.Equal(t, models.StatusUnsubscribed, store.Snapshot()[0].Status)
}

func TestResolve_ConfirmAfterUnsubscribeIsRejected(t *testing.T) {
	reg, _, notifier := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)
	token := notifier.Last(t).Token
	require.NoError(t, reg.Resolve(ctx, token, registry.ActionUnsubscribe))

	err = reg.Resolve(ctx, token, registry.ActionConfirm)

	assert.ErrorIs(t, err, registry.ErrUnknownToken)
}

func TestResolve_UnknownToken(t *testing.T) {
	reg, store, _ := newTestRegistry(t)

	err := reg.Resolve(context.Background(), "forged", registry.ActionConfirm)

	require.ErrorIs(t, err, registry.ErrUnknownToken)
	assert.Zero(t, store.Saves)
}

func TestResolve_EmptyToken(t *testing.T) {
	reg, _, _ := newTestRegistry(t, models.Subscriber{
		Email:  "jane@example.com",
		Status: models.StatusConfirmed,
	})

	err := reg.Resolve(context.Background(), "", registry.ActionUnsubscribe)

	assert.ErrorIs(t, err, registry.ErrUnknownToken)
}

func TestResolve_InvalidAction(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	err := reg.Resolve(context.Background(), "whatever", registry.Action("delete"))

	assert.ErrorIs(t, err, registry.ErrInvalidAction)
}

func TestResolve_StorageUnavailable(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	store.LoadErr = errors.New("permission denied")

	err := reg.Resolve(context.Background(), "token", registry.ActionConfirm)

	assert.ErrorIs(t, err, registry.ErrStorageUnavailable)
}

func TestList_ReturnsSnapshot(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)

	subs, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	subs[0].Status = models.StatusConfirmed
	assert.Equal(t, models.StatusPending, store.Snapshot()[0].Status)
}

func TestList_StorageUnavailable(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	store.LoadErr = errors.New("boom")

	_, err := reg.List(context.Background())

	assert.ErrorIs(t, err, registry.ErrStorageUnavailable)
}

func TestConfirmedEmails(t *testing.T) {
	reg, _, _ := newTestRegistry(t,
		models.Subscriber{Email: "u@example.com", Status: models.StatusUnsubscribed},
		models.Subscriber{Email: "c1@example.com", Status: models.StatusConfirmed},
		models.Subscriber{Email: "p@example.com", Status: models.StatusPending, ConfirmToken: "t"},
		models.Subscriber{Email: "c2@example.com", Status: models.StatusConfirmed},
	)

	emails, err := reg.ConfirmedEmails(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"c1@example.com", "c2@example.com"}, emails)
}

func TestConfirmedEmails_Empty(t *testing.T) {
	emails := registry.ConfirmedEmails(nil)

	assert.NotNil(t, emails)
	assert.Empty(t, emails)
}

func TestScenario_RegisterConfirmReplay(t *testing.T) {
	reg, _, notifier := newTestRegistry(t)
	ctx := context.Background()

	outcome, err := reg.Register(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, outcome.Pending())

	token := notifier.Last(t).Token
	require.NoError(t, reg.Resolve(ctx, token, registry.ActionConfirm))

	emails, err := reg.ConfirmedEmails(ctx)
	require.NoError(t, err)
	assert.Contains(t, emails, "jane@example.com")

	err = reg.Resolve(ctx, token, registry.ActionConfirm)
	assert.ErrorIs(t, err, registry.ErrUnknownToken)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	reg, store, notifier := newTestRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Register(ctx, "race@example.com")
		}()
	}
	wg.Wait()

	assert.Len(t, store.Snapshot(), 1)
	assert.Len(t, notifier.Calls(), 1)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		input   string
		want    registry.Action
		wantErr bool
	}{
		{"confirm", registry.ActionConfirm, false},
		{"unsubscribe", registry.ActionUnsubscribe, false},
		{"", "", true},
		{"CONFIRM", "", true},
		{"delete", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := registry.ParseAction(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, registry.ErrInvalidAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "pending", registry.OutcomePending.String())
	assert.Equal(t, "check_email", registry.OutcomeCheckEmail.String())
	assert.Equal(t, "already_subscribed", registry.OutcomeAlreadySubscribed.String())
}
