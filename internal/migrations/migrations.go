// Package migrations holds the embedded goose migrations for the users schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var Migrations embed.FS

const dir = "sql"

// goose keeps its base FS and dialect in package state
var mu sync.Mutex

func prepare(dialect string) error {
	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Up applies every pending migration. dialect is a goose dialect name
// such as "postgres" or "sqlite3".
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	return UpTo(ctx, db, dialect, goose.MaxVersion)
}

// UpTo applies pending migrations up to and including version.
func UpTo(ctx context.Context, db *sql.DB, dialect string, version int64) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}

	mu.Lock()
	defer mu.Unlock()

	if err := prepare(dialect); err != nil {
		return err
	}
	if err := goose.UpToContext(ctx, db, dir, version); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Reset rolls back every applied migration.
func Reset(ctx context.Context, db *sql.DB, dialect string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}

	mu.Lock()
	defer mu.Unlock()

	if err := prepare(dialect); err != nil {
		return err
	}
	if err := goose.DownToContext(ctx, db, dir, 0); err != nil {
		return fmt.Errorf("goose down-to 0: %w", err)
	}
	return nil
}

// Version returns the latest applied migration version.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := prepare(dialect); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return v, nil
}
