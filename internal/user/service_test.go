package user

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/task-api/internal/logging"
)

// memStore is an in-memory Store for tests
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uuid.UUID]*User)}
}

func (m *memStore) Create(_ context.Context, name, email, passwordHash string, age *int) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return nil, ErrDuplicateEmail
		}
	}

	u := &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Age:          age,
	}
	m.users[u.ID] = u

	copied := *u
	return &copied, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.users[id]
	return ok, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, columns map[string]any) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	for column, value := range columns {
		switch column {
		case "name":
			u.Name = value.(string)
		case "email":
			email := value.(string)
			for otherID, other := range m.users {
				if otherID != id && other.Email == email {
					return nil, ErrDuplicateEmail
				}
			}
			u.Email = email
		case "password_hash":
			u.PasswordHash = value.(string)
		case "age":
			age := value.(int)
			u.Age = &age
		}
	}

	copied := *u
	return &copied, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) SetAvatar(_ context.Context, id uuid.UUID, avatar []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Avatar = avatar
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, logging.NewLogger(true), 1_000_000)
}

func intPtr(v int) *int { return &v }

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		age      *int
		wantErr  error
	}{
		{"missing name", "", "eva@testmail.com", "eva@1234", nil, ErrNameRequired},
		{"missing email", "Eva Jones", "", "eva@1234", nil, ErrEmailRequired},
		{"bad email", "Eva Jones", "not-an-email", "eva@1234", nil, ErrInvalidEmailFormat},
		{"missing password", "Eva Jones", "eva@testmail.com", "", nil, ErrPasswordRequired},
		{"short password", "Eva Jones", "eva@testmail.com", "abc12", nil, ErrPasswordTooShort},
		{"weak password", "Eva Jones", "eva@testmail.com", "Password123", nil, ErrPasswordTooWeak},
		{"negative age", "Eva Jones", "eva@testmail.com", "eva@1234", intPtr(-1), ErrNegativeAge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestService(newMemStore())
			_, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password, tt.age)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_HashesPasswordAndNormalizesEmail(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestService(store)

	created, err := svc.Register(context.Background(), "Daman Preet", "Daman@TestMail.com", "daman@123", intPtr(21))
	require.NoError(t, err)

	assert.Equal(t, "daman@testmail.com", created.Email)

	stored, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "daman@123", stored.PasswordHash)
	assert.True(t, VerifyPassword(stored.PasswordHash, "daman@123"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemStore())

	_, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other Eva", "EVA@testmail.com", "other@1234", nil)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAuthenticate_UniformFailure(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemStore())

	_, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	_, unknownErr := svc.Authenticate(context.Background(), "nobody@testmail.com", "eva@1234")
	_, wrongErr := svc.Authenticate(context.Background(), "eva@testmail.com", "wrong-pass")

	// No distinction between unknown email and wrong password
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr, wrongErr)
}

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemStore())

	created, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	found, err := svc.Authenticate(context.Background(), "Eva@TestMail.com", "eva@1234")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestUpdateProfile_UnknownFieldFailsWholePatch(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestService(store)

	created, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	_, err = svc.UpdateProfile(context.Background(), created.ID, map[string]any{
		"name":     "Eva James",
		"location": "Scranton",
	})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	// Nothing was applied
	unchanged, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eva Jones", unchanged.Name)
}

func TestUpdateProfile_ValidFields(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestService(store)

	created, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), created.ID, map[string]any{
		"name": "Eva James",
		"age":  float64(22),
	})
	require.NoError(t, err)

	assert.Equal(t, "Eva James", updated.Name)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 22, *updated.Age)
}

func TestUpdateProfile_PasswordIsRehashed(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestService(store)

	created, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	_, err = svc.UpdateProfile(context.Background(), created.ID, map[string]any{
		"password": "newsecret1",
	})
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "newsecret1", stored.PasswordHash)
	assert.True(t, VerifyPassword(stored.PasswordHash, "newsecret1"))

	_, err = svc.Authenticate(context.Background(), "eva@testmail.com", "eva@1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetAvatar_Validation(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := NewService(store, logging.NewLogger(true), 16)

	created, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	png := []byte("\x89PNG\r\n\x1a\n")

	require.NoError(t, svc.SetAvatar(context.Background(), created.ID, png))

	data, err := svc.Avatar(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	err = svc.SetAvatar(context.Background(), created.ID, []byte("hello!"))
	assert.ErrorIs(t, err, ErrUnsupportedAvatar)

	tooLarge := append(png, make([]byte, 32)...)
	err = svc.SetAvatar(context.Background(), created.ID, tooLarge)
	assert.ErrorIs(t, err, ErrAvatarTooLarge)
}

func TestAvatar_NotSet(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMemStore())

	created, err := svc.Register(context.Background(), "Eva Jones", "eva@testmail.com", "eva@1234", nil)
	require.NoError(t, err)

	_, err = svc.Avatar(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrAvatarNotFound)
}
