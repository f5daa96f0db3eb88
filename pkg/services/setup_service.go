package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	secaudit "github.com/knowhy-io/knowhy-engine/pkg/audit"
	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/database"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
)

// systemIDRegex restricts system identifiers to lowercase alphanumerics,
// at least four characters. The identifier becomes part of the tenant's
// data table name, so it must be identifier-safe.
var systemIDRegex = regexp.MustCompile(`^[a-z0-9]{4,}$`)

// SetupRequest carries the inputs of the setup wizard.
type SetupRequest struct {
	SystemID      string `json:"system_id"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
	AdminEmail    string `json:"admin_email,omitempty"`
}

// SetupStatus describes whether the tenant has been provisioned.
type SetupStatus struct {
	SetupDone bool   `json:"setup_done"`
	SystemID  string `json:"system_id,omitempty"`
	TableName string `json:"table_name,omitempty"`
}

// SetupService provisions a tenant: system tables, seed configuration and
// the first admin account.
type SetupService interface {
	// IsSetupDone reports whether the tenant is fully provisioned.
	IsSetupDone(ctx context.Context) (bool, error)

	// Status returns the tenant's provisioning state.
	Status(ctx context.Context) (*SetupStatus, error)

	// Run executes the setup wizard. Returns ErrSetupDone when the
	// tenant is already provisioned.
	Run(ctx context.Context, req *SetupRequest) error

	// Reset drops all system tables, returning the tenant to its
	// pre-setup state. Report templates on disk are untouched.
	Reset(ctx context.Context) error
}

type setupService struct {
	pool     *pgxpool.Pool
	tables   database.SystemTables
	configs  repositories.ConfigRepository
	users    repositories.UserRepository
	security *secaudit.SecurityAuditor
	logger   *zap.Logger
}

// NewSetupService creates a SetupService with dependencies.
func NewSetupService(
	pool *pgxpool.Pool,
	tables database.SystemTables,
	configs repositories.ConfigRepository,
	users repositories.UserRepository,
	security *secaudit.SecurityAuditor,
	logger *zap.Logger,
) SetupService {
	return &setupService{
		pool:     pool,
		tables:   tables,
		configs:  configs,
		users:    users,
		security: security,
		logger:   logger,
	}
}

var _ SetupService = (*setupService)(nil)

func (s *setupService) IsSetupDone(ctx context.Context) (bool, error) {
	exists, err := s.tables.Exists(ctx, s.pool)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	done, err := s.configs.GetOrDefault(ctx, repositories.ConfigKeyIsSetupDone, "false")
	if err != nil {
		return false, err
	}
	return done == "true", nil
}

func (s *setupService) Status(ctx context.Context) (*SetupStatus, error) {
	done, err := s.IsSetupDone(ctx)
	if err != nil {
		return nil, err
	}
	status := &SetupStatus{SetupDone: done}
	if !done {
		return status, nil
	}

	status.SystemID, _ = s.configs.GetOrDefault(ctx, repositories.ConfigKeySystemID, "")
	status.TableName, _ = s.configs.GetOrDefault(ctx, repositories.ConfigKeyTableName, "")
	return status, nil
}

func (s *setupService) Run(ctx context.Context, req *SetupRequest) error {
	if !systemIDRegex.MatchString(req.SystemID) {
		return fmt.Errorf("system id must be at least 4 lowercase alphanumeric characters")
	}
	if req.AdminUsername == "" {
		return fmt.Errorf("admin username is required")
	}
	if len(req.AdminPassword) < 6 {
		return fmt.Errorf("admin password must be at least 6 characters")
	}

	done, err := s.IsSetupDone(ctx)
	if err != nil {
		return err
	}
	if done {
		return apperrors.ErrSetupDone
	}

	if err := s.tables.Provision(ctx, s.pool); err != nil {
		return err
	}

	hash, err := HashPassword(req.AdminPassword)
	if err != nil {
		return err
	}
	admin := &models.User{
		Username:     req.AdminUsername,
		PasswordHash: hash,
		Email:        req.AdminEmail,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	tableName := "customer_" + req.SystemID
	seed := map[string]string{
		repositories.ConfigKeySystemID:    req.SystemID,
		repositories.ConfigKeyTableName:   tableName,
		repositories.ConfigKeyIsSetupDone: "true",
	}
	for key, value := range seed {
		if err := s.configs.Set(ctx, key, value); err != nil {
			return err
		}
	}

	// The data table is loaded out of band, so it may not exist yet.
	if exists, err := database.TableExists(ctx, s.pool, tableName); err == nil && !exists {
		s.logger.Warn("Configured data table does not exist yet",
			zap.String("table_name", tableName))
	}

	s.logger.Info("Setup completed",
		zap.String("system_id", req.SystemID),
		zap.String("admin_username", req.AdminUsername))
	return nil
}

func (s *setupService) Reset(ctx context.Context) error {
	if err := s.tables.Drop(ctx, s.pool); err != nil {
		return err
	}
	username, _ := auth.UsernameFromContext(ctx)
	s.security.LogSystemReset(username)
	s.logger.Warn("System tables dropped, tenant reset to pre-setup state")
	return nil
}
