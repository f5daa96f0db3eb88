package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
)

// AuditRepository provides data access for a tenant's logs table.
type AuditRepository interface {
	// Create inserts a new audit log entry.
	Create(ctx context.Context, entry *models.AuditLog) error

	// List returns a page of entries newest first, joined with usernames.
	List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

type auditRepository struct {
	pool   *pgxpool.Pool
	tables database.SystemTables
}

// NewAuditRepository creates an AuditRepository for the given tenant tables.
func NewAuditRepository(pool *pgxpool.Pool, tables database.SystemTables) AuditRepository {
	return &auditRepository{pool: pool, tables: tables}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, action, detail)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, r.tables.Logs())

	err := r.pool.QueryRow(ctx, query, entry.UserID, entry.Action, entry.Detail).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT l.id, l.user_id, COALESCE(u.username, ''), l.action, l.detail, l.created_at
		FROM %s l
		LEFT JOIN %s u ON u.id = l.user_id
		ORDER BY l.created_at DESC
		LIMIT $1 OFFSET $2`, r.tables.Logs(), r.tables.Users())

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
