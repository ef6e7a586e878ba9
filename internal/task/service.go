package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/task-api/internal/logging"
)

var (
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidUpdate       = errors.New("invalid update field")
	ErrInvalidSortField    = errors.New("invalid sort field")
)

const storeTimeout = 5 * time.Second

// allowedUpdateFields maps patchable task keys to their columns
var allowedUpdateFields = map[string]string{
	"description": "description",
	"completed":   "completed",
}

// allowedSortFields maps sortBy keys to their columns
var allowedSortFields = map[string]string{
	"createdAt":   "created_at",
	"completed":   "completed",
	"description": "description",
}

// Service handles task business logic. Every operation is scoped to the
// authenticated owner passed in explicitly; there is no ambient caller state.
type Service struct {
	store  Store
	logger *logging.Logger
}

func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Create makes a new task owned by ownerID. Any owner supplied by the
// caller's request body is ignored upstream; ownership comes only from
// the authenticated identity.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrDescriptionRequired
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	created, err := s.store.Create(ctx, ownerID, strings.TrimSpace(description), completed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", created.ID, "owner_id", ownerID)

	return created, nil
}

// List returns the owner's tasks with optional filter, pagination and sort
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, opts ListOptions) ([]Task, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	return s.store.ListByOwner(ctx, ownerID, opts)
}

// Get retrieves one of the owner's tasks by id
func (s *Service) Get(ctx context.Context, id, ownerID uuid.UUID) (*Task, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	return s.store.GetByIDAndOwner(ctx, id, ownerID)
}

// Update applies a whitelisted patch to one of the owner's tasks.
// Unknown keys fail before any mutation.
func (s *Service) Update(ctx context.Context, id, ownerID uuid.UUID, patch map[string]any) (*Task, error) {
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
		case "description":
			description, ok := value.(string)
			if !ok || strings.TrimSpace(description) == "" {
				return nil, ErrDescriptionRequired
			}
			columns[column] = strings.TrimSpace(description)
		case "completed":
			completed, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: completed must be a boolean", ErrInvalidUpdate)
			}
			columns[column] = completed
		}
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	return s.store.Update(ctx, id, ownerID, columns)
}

// Delete removes one of the owner's tasks by id
func (s *Service) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.logger.Info("task deleted", "task_id", id, "owner_id", ownerID)

	return nil
}

// ParseSort turns a "field:direction" query value into list options.
// Accepted fields: createdAt, completed, description.
func ParseSort(sortBy string) (column string, desc bool, err error) {
	if sortBy == "" {
		return "", false, nil
	}

	parts := strings.SplitN(sortBy, ":", 2)

	column, ok := allowedSortFields[parts[0]]
	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrInvalidSortField, parts[0])
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "asc":
		case "desc":
			desc = true
		default:
			return "", false, fmt.Errorf("%w: direction must be asc or desc", ErrInvalidSortField)
		}
	}

	return column, desc, nil
}
