package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
)

// UserRepository provides data access for a tenant's users table.
type UserRepository interface {
	// Create inserts a new user and fills in its generated ID.
	Create(ctx context.Context, user *models.User) error

	// GetByUsername returns the user with the given username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID returns the user with the given ID.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// List returns all users ordered by username.
	List(ctx context.Context) ([]*models.User, error)

	// UpdatePassword replaces a user's password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Update modifies a user's email, role and active flag.
	Update(ctx context.Context, user *models.User) error

	// TouchLastLogin records a successful login time.
	TouchLastLogin(ctx context.Context, id int64) error

	// Delete removes the user with the given ID.
	Delete(ctx context.Context, id int64) error

	// CountAdmins returns the number of active admin users.
	CountAdmins(ctx context.Context) (int, error)
}

type userRepository struct {
	pool   *pgxpool.Pool
	tables database.SystemTables
}

// NewUserRepository creates a UserRepository for the given tenant tables.
func NewUserRepository(pool *pgxpool.Pool, tables database.SystemTables) UserRepository {
	return &userRepository{pool: pool, tables: tables}
}

var _ UserRepository = (*userRepository)(nil)

const userColumns = "id, username, password_hash, COALESCE(email, ''), role, is_active, created_at, last_login"

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (username, password_hash, email, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, r.tables.Users())

	err := r.pool.QueryRow(ctx, query,
		user.Username, user.PasswordHash, user.Email, user.Role, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE username = $1", userColumns, r.tables.Users())

	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", userColumns, r.tables.Users())

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY username", userColumns, r.tables.Users())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := fmt.Sprintf("UPDATE %s SET password_hash = $1 WHERE id = $2", r.tables.Users())

	tag, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		UPDATE %s SET email = $1, role = $2, is_active = $3
		WHERE id = $4`, r.tables.Users())

	tag, err := r.pool.Exec(ctx, query, user.Email, user.Role, user.IsActive, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", user.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id int64) error {
	query := fmt.Sprintf("UPDATE %s SET last_login = $1 WHERE id = $2", r.tables.Users())

	if _, err := r.pool.Exec(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to record last login: %w", err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tables.Users())

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *userRepository) CountAdmins(ctx context.Context) (int, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE role = $1 AND is_active", r.tables.Users())

	var count int
	if err := r.pool.QueryRow(ctx, query, models.RoleAdmin).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}
