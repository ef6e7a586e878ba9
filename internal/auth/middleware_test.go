package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUserChecker is an in-memory UserChecker for tests
type memUserChecker struct {
	users map[uuid.UUID]bool
}

func (m *memUserChecker) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.users[id], nil
}

type guardFixture struct {
	tokens   *PasetoService
	sessions *memSessionStore
	users    *memUserChecker
	handler  http.Handler
	seenID   uuid.UUID
	seenTok  string
	called   bool
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()

	tokens, err := NewPasetoService(testKey)
	require.NoError(t, err)

	f := &guardFixture{
		tokens:   tokens,
		sessions: newMemSessionStore(),
		users:    &memUserChecker{users: make(map[uuid.UUID]bool)},
	}

	mw := NewMiddleware(tokens, f.sessions, f.users)
	f.handler = mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.called = true
		f.seenID, _ = GetUserIDFromContext(r.Context())
		f.seenTok, _ = GetTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	return f
}

// login issues a token with a live session for an existing user
func (f *guardFixture) login(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	token, err := f.tokens.CreateToken(userID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Create(context.Background(), userID, token, time.Now().Add(time.Hour)))
	f.users.users[userID] = true

	return token
}

func (f *guardFixture) request(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	t.Parallel()

	f := newGuardFixture(t)
	rec := f.request("")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	t.Parallel()

	f := newGuardFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	t.Parallel()

	f := newGuardFixture(t)
	rec := f.request("v4.local.garbage")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
}

func TestRequireAuth_RevokedSession(t *testing.T) {
	t.Parallel()

	f := newGuardFixture(t)
	userID := uuid.New()
	token := f.login(t, userID)

	require.NoError(t, f.sessions.Revoke(context.Background(), token))

	rec := f.request(token)

	// Valid signature is not enough once the session is gone
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	t.Parallel()

	f := newGuardFixture(t)
	userID := uuid.New()
	token := f.login(t, userID)

	f.users.users[userID] = false

	rec := f.request(token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
}

func TestRequireAuth_Success(t *testing.T) {
	t.Parallel()

	f := newGuardFixture(t)
	userID := uuid.New()
	token := f.login(t, userID)

	rec := f.request(token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.called)
	assert.Equal(t, userID, f.seenID)
	assert.Equal(t, token, f.seenTok)
}

func TestRequireAuth_SessionUserMismatch(t *testing.T) {
	t.Parallel()

	f := newGuardFixture(t)
	userID := uuid.New()
	otherID := uuid.New()

	token, err := f.tokens.CreateToken(userID, time.Hour)
	require.NoError(t, err)
	// Session recorded against a different user than the token claims
	require.NoError(t, f.sessions.Create(context.Background(), otherID, token, time.Now().Add(time.Hour)))
	f.users.users[userID] = true

	rec := f.request(token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
}
