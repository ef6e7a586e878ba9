package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Age          *int      `json:"age,omitempty"`
	Avatar       []byte    `json:"-"` // Raw bytes only via the avatar endpoint
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasAvatar reports whether a profile image is stored
func (u *User) HasAvatar() bool {
	return len(u.Avatar) > 0
}
