package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/task-api/internal/logging"
)

func newTestService(t *testing.T, store SessionStore) *Service {
	t.Helper()

	tokens, err := NewPasetoService(testKey)
	require.NoError(t, err)

	return NewService(store, tokens, logging.NewLogger(true), time.Hour)
}

func TestService_IssueCreatesSession(t *testing.T) {
	t.Parallel()

	store := newMemSessionStore()
	svc := newTestService(t, store)
	userID := uuid.New()

	token, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := store.Get(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
}

func TestService_SessionsAreAdditive(t *testing.T) {
	t.Parallel()

	store := newMemSessionStore()
	svc := newTestService(t, store)
	userID := uuid.New()

	first, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, store.count())
}

func TestService_LogoutRevokesOnlyPresentedToken(t *testing.T) {
	t.Parallel()

	store := newMemSessionStore()
	svc := newTestService(t, store)
	userID := uuid.New()

	first, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), first))

	_, err = store.Get(context.Background(), first)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, err := store.Get(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
}

func TestService_LogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemSessionStore()
	svc := newTestService(t, store)

	token, err := svc.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))
	require.NoError(t, svc.Logout(context.Background(), token))
	require.NoError(t, svc.Logout(context.Background(), "never-issued"))
}

func TestService_SweepExpiredSessions(t *testing.T) {
	t.Parallel()

	store := newMemSessionStore()
	svc := newTestService(t, store)
	userID := uuid.New()

	require.NoError(t, store.Create(context.Background(), userID, "stale-token", time.Now().Add(-time.Minute)))
	live, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, 2, store.count())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.SweepExpiredSessions(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return store.count() == 1
	}, time.Second, 10*time.Millisecond)

	session, err := store.Get(context.Background(), live)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
}

func TestService_LogoutAll(t *testing.T) {
	t.Parallel()

	store := newMemSessionStore()
	svc := newTestService(t, store)
	userID := uuid.New()
	otherID := uuid.New()

	_, err := svc.Issue(context.Background(), userID)
	require.NoError(t, err)
	_, err = svc.Issue(context.Background(), userID)
	require.NoError(t, err)
	otherToken, err := svc.Issue(context.Background(), otherID)
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(context.Background(), userID))

	assert.Equal(t, 1, store.count())

	session, err := store.Get(context.Background(), otherToken)
	require.NoError(t, err)
	assert.Equal(t, otherID, session.UserID)
}
