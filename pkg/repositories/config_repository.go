package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
)

// Well-known configuration keys stored in a tenant's config table.
const (
	ConfigKeyTableName   = "TABLE_NAME"
	ConfigKeySystemID    = "SYSTEM_ID"
	ConfigKeyIsSetupDone = "IS_SETUP_DONE"
)

// ConfigRepository provides key/value access to a tenant's config table.
type ConfigRepository interface {
	// Get returns the value for a key.
	Get(ctx context.Context, key string) (string, error)

	// GetOrDefault returns the value for a key, or fallback when absent.
	GetOrDefault(ctx context.Context, key, fallback string) (string, error)

	// Set upserts a key/value pair.
	Set(ctx context.Context, key, value string) error

	// All returns every key/value pair.
	All(ctx context.Context) (map[string]string, error)
}

type configRepository struct {
	pool   *pgxpool.Pool
	tables database.SystemTables
}

// NewConfigRepository creates a ConfigRepository for the given tenant tables.
func NewConfigRepository(pool *pgxpool.Pool, tables database.SystemTables) ConfigRepository {
	return &configRepository{pool: pool, tables: tables}
}

var _ ConfigRepository = (*configRepository)(nil)

func (r *configRepository) Get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", r.tables.Config())

	var value string
	err := r.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("config key %q: %w", key, apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get config value: %w", err)
	}
	return value, nil
}

func (r *configRepository) GetOrDefault(ctx context.Context, key, fallback string) (string, error) {
	value, err := r.Get(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *configRepository) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		r.tables.Config())

	if _, err := r.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set config value: %w", err)
	}
	return nil
}

func (r *configRepository) All(ctx context.Context) (map[string]string, error) {
	query := fmt.Sprintf("SELECT key, value FROM %s", r.tables.Config())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list config values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}
