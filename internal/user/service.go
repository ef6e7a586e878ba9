package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/task-api/internal/logging"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNameRequired       = errors.New("name is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 7 characters")
	ErrPasswordTooWeak    = errors.New(`password must not contain "password"`)
	ErrNegativeAge        = errors.New("age must be a non-negative number")
	ErrInvalidUpdate      = errors.New("invalid update field")
	ErrAvatarTooLarge     = errors.New("avatar exceeds maximum allowed size")
	ErrUnsupportedAvatar  = errors.New("avatar must be a jpeg or png image")
	ErrAvatarNotFound     = errors.New("avatar not found")
)

const storeTimeout = 5 * time.Second

// allowedUpdateFields maps patchable profile keys to their columns.
// Any key outside this whitelist fails the whole patch.
var allowedUpdateFields = map[string]string{
	"name":     "name",
	"email":    "email",
	"password": "password_hash",
	"age":      "age",
}

// Service handles user account business logic
type Service struct {
	store          Store
	logger         *logging.Logger
	maxAvatarBytes int64
}

func NewService(store Store, logger *logging.Logger, maxAvatarBytes int64) *Service {
	return &Service{
		store:          store,
		logger:         logger,
		maxAvatarBytes: maxAvatarBytes,
	}
}

// Register creates a new user account with a hashed password
func (s *Service) Register(ctx context.Context, name, email, password string, age *int) (*User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if age != nil && *age < 0 {
		return nil, ErrNegativeAge
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	newUser, err := s.store.Create(ctx, strings.TrimSpace(name), normalized, passwordHash, age)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", newUser.ID)

	return newUser, nil
}

// Authenticate looks up a user by credentials. Unknown email and wrong
// password fail identically so callers cannot enumerate accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	normalized := strings.ToLower(strings.TrimSpace(email))

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	existing, err := s.store.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return existing, nil
}

// GetByID retrieves a user by id
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	return s.store.GetByID(ctx, id)
}

// UpdateProfile applies a whitelisted patch. Unknown keys fail the whole
// operation before any mutation; password values are re-hashed.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, patch map[string]any) (*User, error) {
	if len(patch) == 0 {
		return nil, ErrInvalidUpdate
	}

	columns := make(map[string]any, len(patch))
	for key, value := range patch {
		column, ok := allowedUpdateFields[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidUpdate, key)
		}

		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return nil, ErrNameRequired
			}
			columns[column] = strings.TrimSpace(name)
		case "email":
			email, ok := value.(string)
			if !ok {
				return nil, ErrInvalidEmailFormat
			}
			normalized, err := normalizeEmail(email)
			if err != nil {
				return nil, err
			}
			columns[column] = normalized
		case "password":
			password, ok := value.(string)
			if !ok {
				return nil, ErrPasswordRequired
			}
			if err := validatePassword(password); err != nil {
				return nil, err
			}
			passwordHash, err := HashPassword(password)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}
			columns[column] = passwordHash
		case "age":
			age, err := toAge(value)
			if err != nil {
				return nil, err
			}
			columns[column] = age
		}
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	updated, err := s.store.Update(ctx, id, columns)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user profile updated", "user_id", id)

	return updated, nil
}

// Delete removes the account and, through the store, every task it owns
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", id)

	return nil
}

// SetAvatar validates and replaces the profile image
func (s *Service) SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error {
	if int64(len(data)) > s.maxAvatarBytes {
		return ErrAvatarTooLarge
	}

	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png":
	default:
		return ErrUnsupportedAvatar
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	return s.store.SetAvatar(ctx, id, data)
}

// Avatar returns the stored profile image bytes
func (s *Service) Avatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !existing.HasAvatar() {
		return nil, ErrAvatarNotFound
	}

	return existing.Avatar, nil
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", ErrEmailRequired
	}
	if len(trimmed) > 254 {
		return "", ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", ErrInvalidEmailFormat
	}
	return trimmed, nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < 7 {
		return ErrPasswordTooShort
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return ErrPasswordTooWeak
	}
	return nil
}

func toAge(value any) (int, error) {
	switch v := value.(type) {
	case float64:
		if v != float64(int(v)) || v < 0 {
			return 0, ErrNegativeAge
		}
		return int(v), nil
	case int:
		if v < 0 {
			return 0, ErrNegativeAge
		}
		return v, nil
	default:
		return 0, ErrNegativeAge
	}
}
