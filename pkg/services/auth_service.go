package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/knowhy-io/knowhy-engine/pkg/apperrors"
	secaudit "github.com/knowhy-io/knowhy-engine/pkg/audit"
	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/config"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
)

// LoginResult holds the outcome of a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user,omitempty"`
	TempAdmin bool         `json:"temp_admin,omitempty"`
}

// AuthService defines the interface for authentication operations.
type AuthService interface {
	// Login verifies credentials and issues a token. Before the setup
	// wizard has run, only the configured default admin credentials are
	// accepted and the issued token is marked temporary.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// Refresh issues a fresh token for an authenticated user.
	Refresh(ctx context.Context, claims *auth.Claims) (string, error)

	// Me returns the account behind the authenticated claims.
	Me(ctx context.Context, claims *auth.Claims) (*models.User, error)

	// ChangePassword verifies the current password and sets a new one.
	ChangePassword(ctx context.Context, claims *auth.Claims, current, updated string) error
}

type authService struct {
	users    repositories.UserRepository
	setup    SetupService
	tokens   auth.TokenService
	audit    AuditService
	security *secaudit.SecurityAuditor
	cfg      config.AuthConfig
	logger   *zap.Logger
}

// NewAuthService creates an AuthService with dependencies.
func NewAuthService(
	users repositories.UserRepository,
	setup SetupService,
	tokens auth.TokenService,
	audit AuditService,
	security *secaudit.SecurityAuditor,
	cfg config.AuthConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		users:    users,
		setup:    setup,
		tokens:   tokens,
		audit:    audit,
		security: security,
		cfg:      cfg,
		logger:   logger,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	done, err := s.setup.IsSetupDone(ctx)
	if err != nil {
		return nil, err
	}

	if !done {
		// Pre-setup: only the default admin may log in, and only to
		// reach the setup wizard.
		if username != s.cfg.DefaultAdminUsername || password != s.cfg.DefaultAdminPassword {
			return s.rejectLogin(username)
		}
		token, err := s.tokens.Issue(username, models.RoleAdmin, true)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Temporary admin logged in for setup")
		return &LoginResult{Token: token, TempAdmin: true}, nil
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.rejectLogin(username)
		}
		return nil, err
	}
	if !user.IsActive {
		return s.rejectLogin(username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return s.rejectLogin(username)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to record last login", zap.Error(err))
	}

	token, err := s.tokens.Issue(user.Username, user.Role, false)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &user.ID, models.ActionLogin, "")
	return &LoginResult{Token: token, User: user}, nil
}

func (s *authService) Refresh(ctx context.Context, claims *auth.Claims) (string, error) {
	if claims.TempAdmin {
		return s.tokens.Issue(claims.Username, claims.Role, true)
	}

	user, err := s.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", apperrors.ErrInvalidCredential
	}
	return s.tokens.Issue(user.Username, user.Role, false)
}

func (s *authService) Me(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	return s.users.GetByUsername(ctx, claims.Username)
}

func (s *authService) ChangePassword(ctx context.Context, claims *auth.Claims, current, updated string) error {
	if len(updated) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	user, err := s.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperrors.ErrInvalidCredential
	}

	hash, err := HashPassword(updated)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// rejectLogin records the failed attempt and returns the uniform
// credential error, so callers cannot distinguish unknown users from
// wrong passwords.
func (s *authService) rejectLogin(username string) (*LoginResult, error) {
	s.security.LogLoginFailure(username, "")
	return nil, apperrors.ErrInvalidCredential
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
