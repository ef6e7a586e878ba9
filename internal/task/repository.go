package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/taskhive/task-api/internal/database"
)

var ErrNotFound = errors.New("task not found")

// Store defines the interface for task persistence. Every lookup is
// keyed by id AND owner, so a task owned by someone else is
// indistinguishable from one that does not exist.
type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, opts ListOptions) ([]Task, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*Task, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, columns map[string]any) (*Task, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// Repository handles task data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new task owned by ownerID
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*Task, error) {
	dbTask := &database.Task{
		Description: description,
		Completed:   completed,
		OwnerID:     ownerID,
	}

	_, err := r.db.NewInsert().
		Model(dbTask).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// ListByOwner returns only tasks owned by ownerID. Default order is
// insertion order (created_at, id as tiebreaker).
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, opts ListOptions) ([]Task, error) {
	var dbTasks []database.Task

	query := r.db.NewSelect().
		Model(&dbTasks).
		Where("owner_id = ?", ownerID)

	if opts.Completed != nil {
		query = query.Where("completed = ?", *opts.Completed)
	}

	if opts.SortBy != "" {
		direction := "ASC"
		if opts.SortDesc {
			direction = "DESC"
		}
		query = query.OrderExpr("? ?", bun.Ident(opts.SortBy), bun.Safe(direction))
	} else {
		query = query.Order("created_at ASC", "id ASC")
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Skip > 0 {
		query = query.Offset(opts.Skip)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(dbTasks))
	for i := range dbTasks {
		tasks = append(tasks, *mapDBTaskToModel(&dbTasks[i]))
	}

	return tasks, nil
}

// GetByIDAndOwner retrieves a task by id, scoped to its owner
func (r *Repository) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Update applies validated column values in a single owner-scoped statement
func (r *Repository) Update(ctx context.Context, id, ownerID uuid.UUID, columns map[string]any) (*Task, error) {
	dbTask := new(database.Task)

	query := r.db.NewUpdate().
		Model(dbTask).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Returning("*")

	for column, value := range columns {
		query = query.Set("? = ?", bun.Ident(column), value)
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return mapDBTaskToModel(dbTask), nil
}

// Delete removes a task in a single owner-scoped statement, so a delete
// and a concurrent read for the same id resolve consistently.
func (r *Repository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBTaskToModel converts database model to domain model
func mapDBTaskToModel(dbt *database.Task) *Task {
	return &Task{
		ID:          dbt.ID,
		Description: dbt.Description,
		Completed:   dbt.Completed,
		OwnerID:     dbt.OwnerID,
		CreatedAt:   dbt.CreatedAt,
		UpdatedAt:   dbt.UpdatedAt,
	}
}
