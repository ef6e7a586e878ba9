package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	OwnerID     uuid.UUID `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListOptions narrows and orders an owner's task listing.
// The zero value lists everything in insertion order.
type ListOptions struct {
	Completed *bool
	Limit     int
	Skip      int
	SortBy    string // column name, already validated
	SortDesc  bool
}
