package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/task-api/internal/logging"
)

const storeTimeout = 5 * time.Second

// Service issues and revokes bearer-token sessions. Sessions are
// additive: each successful login yields a new, independently revocable
// token and leaves earlier ones valid.
type Service struct {
	sessions      SessionStore
	tokens        TokenService
	logger        *logging.Logger
	tokenDuration time.Duration
}

func NewService(sessions SessionStore, tokens TokenService, logger *logging.Logger, tokenDuration time.Duration) *Service {
	return &Service{
		sessions:      sessions,
		tokens:        tokens,
		logger:        logger,
		tokenDuration: tokenDuration,
	}
}

// Issue mints a signed token for the user and records the matching session
func (s *Service) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := s.tokens.CreateToken(userID, s.tokenDuration)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	expiresAt := time.Now().Add(s.tokenDuration)
	if err := s.sessions.Create(ctx, userID, token, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// Logout revokes exactly the presented token. Revoking a token that is
// already gone is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	err := s.sessions.Revoke(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// SweepExpiredSessions deletes expired sessions on the given interval
// until ctx is cancelled. Redis expires its keys natively, so only the
// Postgres store needs the sweep.
func (s *Service) SweepExpiredSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, storeTimeout)
			if err := s.sessions.DeleteExpired(sweepCtx); err != nil {
				s.logger.Error("failed to delete expired sessions", "error", err.Error())
			}
			cancel()
		}
	}
}

// LogoutAll revokes every session of the user
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	return nil
}
