package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepository is the Redis-backed session store. Expiration is
// delegated to Redis TTLs, so DeleteExpired is a no-op.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func sessionKey(tokenHash string) string {
	return fmt.Sprintf("session:%s", tokenHash)
}

func userSessionsKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_sessions:%s", userID.String())
}

// Create stores a session hash with TTL and indexes it under the user's set
func (r *RedisRepository) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	tokenHash := hashToken(token)

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session expiration time is in the past")
	}

	pipe := r.client.Pipeline()

	pipe.HSet(ctx, sessionKey(tokenHash), map[string]interface{}{
		"user_id":    userID.String(),
		"expires_at": expiresAt.Unix(),
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, sessionKey(tokenHash), ttl)

	pipe.SAdd(ctx, userSessionsKey(userID), tokenHash)
	pipe.Expire(ctx, userSessionsKey(userID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// Get retrieves the live session for a token
func (r *RedisRepository) Get(ctx context.Context, token string) (*Session, error) {
	tokenHash := hashToken(token)

	data, err := r.client.HGetAll(ctx, sessionKey(tokenHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrSessionNotFound
	}

	userID, err := uuid.Parse(data["user_id"])
	if err != nil {
		return nil, ErrSessionNotFound
	}

	expiresAtUnix, _ := strconv.ParseInt(data["expires_at"], 10, 64)
	createdAtUnix, _ := strconv.ParseInt(data["created_at"], 10, 64)

	expiresAt := time.Unix(expiresAtUnix, 0)
	if time.Now().After(expiresAt) {
		return nil, ErrSessionNotFound
	}

	return &Session{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

// Revoke deletes the session for the presented token
func (r *RedisRepository) Revoke(ctx context.Context, token string) error {
	tokenHash := hashToken(token)

	userIDStr, err := r.client.HGet(ctx, sessionKey(tokenHash), "user_id").Result()
	if err == redis.Nil {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get session for revocation: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, sessionKey(tokenHash))
	if userID, parseErr := uuid.Parse(userIDStr); parseErr == nil {
		pipe.SRem(ctx, userSessionsKey(userID), tokenHash)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// RevokeAllForUser deletes every session of a user
func (r *RedisRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	tokenHashes, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get user sessions: %w", err)
	}

	if len(tokenHashes) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, tokenHash := range tokenHashes {
		pipe.Del(ctx, sessionKey(tokenHash))
	}
	pipe.Del(ctx, userSessionsKey(userID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	return nil
}

// DeleteExpired is not needed for Redis as TTL handles expiration automatically
func (r *RedisRepository) DeleteExpired(ctx context.Context) error {
	return nil
}
