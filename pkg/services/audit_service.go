package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/knowhy-io/knowhy-engine/pkg/auth"
	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
)

// AuditService records user actions in the tenant's logs table.
// Recording is best-effort: a failed write never fails the request.
type AuditService interface {
	// Record writes an audit entry. When userID is nil the acting user
	// is resolved from the request's claims; anonymous callers record
	// an unattributed entry.
	Record(ctx context.Context, userID *int64, action, detail string)

	// List returns recent audit entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

type auditService struct {
	repo   repositories.AuditRepository
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewAuditService creates an AuditService with dependencies.
func NewAuditService(repo repositories.AuditRepository, users repositories.UserRepository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, users: users, logger: logger}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, userID *int64, action, detail string) {
	if userID == nil {
		userID = s.actingUser(ctx)
	}

	entry := &models.AuditLog{
		UserID: userID,
		Action: action,
		Detail: detail,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to write audit log entry",
			zap.String("action", action),
			zap.Error(err))
	}
}

// actingUser looks up the authenticated user's id from context claims.
// Pre-setup temporary admins have no users row, so lookup failures fall
// back to an unattributed entry.
func (s *auditService) actingUser(ctx context.Context) *int64 {
	username, err := auth.UsernameFromContext(ctx)
	if err != nil {
		return nil
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil
	}
	return &user.ID
}

func (s *auditService) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return s.repo.List(ctx, limit, offset)
}
