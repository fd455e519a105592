package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/persistence"
	"github.com/example/meetings-dashboard/internal/testfixtures"
)

func TestTranslateStoreError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, translateStoreError(nil))
	assert.ErrorIs(t, translateStoreError(persistence.ErrNotFound), application.ErrNotFound)
	assert.ErrorIs(t, translateStoreError(fmt.Errorf("insert: %w", persistence.ErrAlreadyExists)), application.ErrAlreadyExists)

	other := errors.New("disk full")
	assert.Same(t, other, translateStoreError(other))
}

type storeHarness struct {
	factory  *testfixtures.ServiceFactory
	auth     *application.AuthService
	meetings *application.MeetingService
}

func newStoreHarness(t *testing.T) *storeHarness {
	t.Helper()
	db := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory()
	return &storeHarness{
		factory: factory,
		auth: factory.NewAuthService(testfixtures.AuthServiceDeps{
			Credentials: newCredentialStoreAdapter(db.Users),
			Sessions:    newSessionRepositoryAdapter(db.Sessions),
			SessionTTL:  time.Hour,
		}),
		meetings: factory.NewMeetingService(newMeetingRepositoryAdapter(db.Meetings)),
	}
}

func TestSessionLifecycleOverSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newStoreHarness(t)

	user, err := h.auth.SignUp(ctx, application.SignUpParams{Email: "Ada@Example.com", Password: "difference engine"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = h.auth.SignUp(ctx, application.SignUpParams{Email: "ada@example.com", Password: "another one"})
	assert.ErrorIs(t, err, application.ErrAlreadyExists)

	_, err = h.auth.Authenticate(ctx, application.AuthenticateParams{Email: "ada@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)

	signedIn, err := h.auth.Authenticate(ctx, application.AuthenticateParams{Email: "ada@example.com", Password: "difference engine"})
	require.NoError(t, err)

	principal, err := h.auth.ValidateSession(ctx, signedIn.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)

	refreshed, err := h.auth.RefreshSession(ctx, application.RefreshSessionParams{Token: signedIn.Session.Token})
	require.NoError(t, err)
	assert.NotEqual(t, signedIn.Session.Token, refreshed.Session.Token)

	_, err = h.auth.ValidateSession(ctx, signedIn.Session.Token)
	assert.Error(t, err, "rotated token must stop resolving")

	h.factory.Clock.Advance(2 * time.Hour)
	_, err = h.auth.ValidateSession(ctx, refreshed.Session.Token)
	assert.ErrorIs(t, err, application.ErrSessionExpired)

	assert.ErrorIs(t, h.auth.RevokeSession(ctx, "never-issued"), application.ErrInvalidCredentials)
}

func TestPasswordUpdateOverSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newStoreHarness(t)

	user, err := h.auth.SignUp(ctx, application.SignUpParams{Email: "grace@example.com", Password: "first password"})
	require.NoError(t, err)

	_, err = h.auth.UpdatePassword(ctx, application.UpdatePasswordParams{
		Principal: application.Principal{UserID: user.ID, Email: user.Email},
		Password:  "second password",
	})
	require.NoError(t, err)

	_, err = h.auth.Authenticate(ctx, application.AuthenticateParams{Email: "grace@example.com", Password: "first password"})
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
	_, err = h.auth.Authenticate(ctx, application.AuthenticateParams{Email: "grace@example.com", Password: "second password"})
	assert.NoError(t, err)
}

func TestMeetingsOverSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newStoreHarness(t)

	owner, err := h.auth.SignUp(ctx, application.SignUpParams{Email: "owner@example.com", Password: "password one"})
	require.NoError(t, err)
	other, err := h.auth.SignUp(ctx, application.SignUpParams{Email: "other@example.com", Password: "password two"})
	require.NoError(t, err)
	ownerPrincipal := application.Principal{UserID: owner.ID, Email: owner.Email}
	otherPrincipal := application.Principal{UserID: other.ID, Email: other.Email}

	events, cancel := h.factory.Events.Subscribe(application.EventFilter{UserID: owner.ID, Kinds: []application.EventKind{application.EventMeetingCreated}})
	defer cancel()

	transcript := "Alice: hello"
	for i, title := range []string{"Kickoff", "Retro", "Planning"} {
		input := application.MeetingInput{
			Title:       title,
			MeetingDate: time.Date(2024, 3, 1+i, 9, 0, 0, 0, time.UTC),
		}
		if title == "Retro" {
			input.Transcript = &transcript
		}
		_, err := h.meetings.CreateMeeting(ctx, application.CreateMeetingParams{Principal: ownerPrincipal, Input: input})
		require.NoError(t, err)
	}
	select {
	case event := <-events:
		assert.Equal(t, application.EventMeetingCreated, event.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a meeting.created event")
	}

	page, err := h.meetings.ListMeetings(ctx, application.ListMeetingsParams{Principal: ownerPrincipal, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Meetings, 2)
	assert.Equal(t, "Planning", page.Meetings[0].Title)
	assert.Equal(t, "Retro", page.Meetings[1].Title)
	assert.True(t, page.Meetings[1].HasTranscript())

	_, err = h.meetings.GetMeeting(ctx, otherPrincipal, page.Meetings[0].ID)
	assert.ErrorIs(t, err, application.ErrNotFound)

	empty, err := h.meetings.ListMeetings(ctx, application.ListMeetingsParams{Principal: otherPrincipal, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Meetings)
}
