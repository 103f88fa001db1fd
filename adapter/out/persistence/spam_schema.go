package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema creates the tables used by the spam filter. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bayes_dictionary (
		id BIGSERIAL PRIMARY KEY,
		word VARCHAR(255) NOT NULL UNIQUE,
		spam_count BIGINT NOT NULL DEFAULT 0,
		ham_count BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS learning_message (
		id BIGSERIAL PRIMARY KEY,
		message TEXT NOT NULL,
		spam BOOLEAN NOT NULL,
		processed TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learning_message_unprocessed
		ON learning_message (id) WHERE processed IS NULL`,
	`CREATE TABLE IF NOT EXISTS nn_structure (
		id BIGSERIAL PRIMARY KEY,
		weights BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_nn_structure_single_row
		ON nn_structure ((id IS NOT NULL))`,
}

// EnsureSchema applies the schema inside one transaction.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return tx.Commit()
}

// DropSchema removes every table created by EnsureSchema.
func DropSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS bayes_dictionary, learning_message, nn_structure`); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}
