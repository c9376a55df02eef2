// Package migrations applies the embedded SQL schema in filename order.
// Each file runs in its own transaction and is recorded in schema_migrations,
// so Apply is safe to call on every start.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
)

//go:embed *.sql
var files embed.FS

// lockKey serializes concurrent Apply calls across instances.
const lockKey = 7306251784

const createCatalog = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Conn is satisfied by *pgxpool.Pool and *pgx.Conn.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Versions lists the embedded migration files in apply order.
func Versions() ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Apply runs every embedded migration not yet recorded and returns the
// versions it applied.
func Apply(ctx context.Context, conn Conn) ([]string, error) {
	versions, err := Versions()
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var applied []string
	for _, version := range versions {
		ok, err := applyOne(ctx, conn, version)
		if err != nil {
			return applied, fmt.Errorf("apply %s: %w", version, err)
		}
		if ok {
			applied = append(applied, version)
		}
	}
	return applied, nil
}

func applyOne(ctx context.Context, conn Conn, version string) (bool, error) {
	body, err := files.ReadFile(version)
	if err != nil {
		return false, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(lockKey)); err != nil {
		return false, err
	}
	// The catalog is created under the lock; concurrent CREATE TABLE IF NOT
	// EXISTS calls can still collide on the system catalog.
	if _, err := tx.Exec(ctx, createCatalog); err != nil {
		return false, fmt.Errorf("create schema_migrations: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	// No arguments: pgx sends this over the simple protocol, which allows
	// several statements and dollar-quoted function bodies.
	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
