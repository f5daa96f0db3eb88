package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
)

// FavoriteRepository provides data access for a tenant's favorites table.
type FavoriteRepository interface {
	// Add pins a report for a user. Adding twice is a no-op.
	Add(ctx context.Context, userID int64, reportName string) error

	// Remove unpins a report for a user.
	Remove(ctx context.Context, userID int64, reportName string) error

	// ListByUser returns the report names a user has pinned.
	ListByUser(ctx context.Context, userID int64) ([]*models.Favorite, error)
}

type favoriteRepository struct {
	pool   *pgxpool.Pool
	tables database.SystemTables
}

// NewFavoriteRepository creates a FavoriteRepository for the given tenant tables.
func NewFavoriteRepository(pool *pgxpool.Pool, tables database.SystemTables) FavoriteRepository {
	return &favoriteRepository{pool: pool, tables: tables}
}

var _ FavoriteRepository = (*favoriteRepository)(nil)

func (r *favoriteRepository) Add(ctx context.Context, userID int64, reportName string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, report_name) VALUES ($1, $2)
		ON CONFLICT (user_id, report_name) DO NOTHING`, r.tables.Favorites())

	if _, err := r.pool.Exec(ctx, query, userID, reportName); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID int64, reportName string) error {
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE user_id = $1 AND report_name = $2", r.tables.Favorites())

	tag, err := r.pool.Exec(ctx, query, userID, reportName)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("favorite %q: %w", reportName, apperrors.ErrNotFound)
	}
	return nil
}

func (r *favoriteRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Favorite, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, report_name, created_at
		FROM %s WHERE user_id = $1 ORDER BY created_at DESC`, r.tables.Favorites())

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]*models.Favorite, 0)
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.ReportName, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, &f)
	}
	return favorites, rows.Err()
}
