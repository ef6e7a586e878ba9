package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenService defines the interface for token creation and validation
type TokenService interface {
	CreateToken(userID uuid.UUID, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserChecker reports whether a user account still exists. The guard uses
// it so tokens of deleted accounts stop authenticating immediately.
type UserChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
