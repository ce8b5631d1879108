package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables if they do not exist. The schema is portable
// between PostgreSQL and SQLite.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("repository.Migrate: %w", err)
	}
	return nil
}

// dbTime normalises timestamps before they reach the database: UTC, no
// monotonic reading, microsecond precision (PostgreSQL's resolution).
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
