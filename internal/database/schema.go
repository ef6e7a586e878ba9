package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Migrate creates the schema if it does not exist yet.
// Foreign keys carry ON DELETE CASCADE so removing a user removes its
// tasks and sessions in the same transaction as the user row.
func Migrate(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewCreateTable().
			Model((*User)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create users table: %w", err)
		}

		if _, err := tx.NewCreateTable().
			Model((*Task)(nil)).
			IfNotExists().
			ForeignKey(`("owner_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create tasks table: %w", err)
		}

		if _, err := tx.NewCreateTable().
			Model((*Session)(nil)).
			IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create sessions table: %w", err)
		}

		if _, err := tx.NewCreateIndex().
			Model((*Task)(nil)).
			IfNotExists().
			Index("tasks_owner_id_idx").
			Column("owner_id").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create tasks owner index: %w", err)
		}

		if _, err := tx.NewCreateIndex().
			Model((*Session)(nil)).
			IfNotExists().
			Index("sessions_user_id_idx").
			Column("user_id").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create sessions user index: %w", err)
		}

		return nil
	})
}
