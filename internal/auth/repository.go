package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/taskhive/task-api/internal/database"
)

// Repository is the Postgres-backed session store
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new session keyed by the token hash
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	dbSession := &database.Session{
		TokenHash: hashToken(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}

	_, err := r.db.NewInsert().
		Model(dbSession).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// Get retrieves the live session for a token. Expired sessions are
// indistinguishable from absent ones.
func (r *Repository) Get(ctx context.Context, token string) (*Session, error) {
	dbSession := new(database.Session)
	err := r.db.NewSelect().
		Model(dbSession).
		Where("token_hash = ?", hashToken(token)).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return mapDBSessionToModel(dbSession), nil
}

// Revoke deletes the session for the presented token.
// A single DELETE keyed by the token hash keeps revocation atomic.
func (r *Repository) Revoke(ctx context.Context, token string) error {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("token_hash = ?", hashToken(token)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// RevokeAllForUser deletes every session of a user
func (r *Repository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	return nil
}

// DeleteExpired removes expired sessions.
// Should be run periodically (e.g. via cron job).
func (r *Repository) DeleteExpired(ctx context.Context) error {
	_, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("expires_at < ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return nil
}

// mapDBSessionToModel converts database model to domain model
func mapDBSessionToModel(dbs *database.Session) *Session {
	return &Session{
		ID:        dbs.ID,
		TokenHash: dbs.TokenHash,
		UserID:    dbs.UserID,
		ExpiresAt: dbs.ExpiresAt,
		CreatedAt: dbs.CreatedAt,
	}
}
