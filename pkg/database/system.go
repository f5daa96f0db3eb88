package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SystemTables derives the names of a tenant's system tables from its table
// prefix. The prefix is validated at config load and setup time, so the
// derived names are safe to splice into SQL.
type SystemTables struct {
	prefix string
}

// NewSystemTables returns the system table name set for a prefix.
func NewSystemTables(prefix string) SystemTables {
	return SystemTables{prefix: prefix}
}

func (s SystemTables) Prefix() string    { return s.prefix }
func (s SystemTables) Users() string     { return s.prefix + "users" }
func (s SystemTables) Config() string    { return s.prefix + "config" }
func (s SystemTables) Reports() string   { return s.prefix + "reports" }
func (s SystemTables) Logs() string      { return s.prefix + "logs" }
func (s SystemTables) Favorites() string { return s.prefix + "favorites" }

// All returns every system table name for the prefix.
func (s SystemTables) All() []string {
	return []string{s.Users(), s.Config(), s.Reports(), s.Logs(), s.Favorites()}
}

// Exists reports whether the users table for this prefix is present, which
// is how the engine decides if a tenant has been provisioned.
func (s SystemTables) Exists(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, s.Users()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check system tables: %w", err)
	}
	return exists, nil
}

// TableExists reports whether a table is present in the public schema.
func TableExists(ctx context.Context, pool *pgxpool.Pool, name string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return exists, nil
}

// Provision creates all system tables for the prefix. Statements use
// CREATE TABLE IF NOT EXISTS so provisioning is idempotent.
func (s SystemTables) Provision(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			role VARCHAR(50) NOT NULL DEFAULT 'user',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login TIMESTAMPTZ
		)`, s.Users()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key VARCHAR(255) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.Config()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			report_name VARCHAR(255) UNIQUE NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category VARCHAR(100) NOT NULL DEFAULT 'general',
			parameters JSONB NOT NULL DEFAULT '{}'::jsonb,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.Reports()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT,
			action VARCHAR(255) NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.Logs()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			report_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, report_name)
		)`, s.Favorites()),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to provision system table: %w", err)
		}
	}
	return nil
}

// Drop removes all system tables for the prefix. Used by the admin
// reset-system operation.
func (s SystemTables) Drop(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range s.All() {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
