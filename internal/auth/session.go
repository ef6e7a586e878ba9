package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a live bearer-token session. The token itself is never
// persisted; sessions are keyed by its SHA-256 hash.
type Session struct {
	ID        uuid.UUID
	TokenHash string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionStore defines the interface for session persistence.
// Implementations include Repository (Postgres/bun) and RedisRepository.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) error
}

// hashToken returns the hex-encoded SHA-256 of a token
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
