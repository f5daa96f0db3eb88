package services

import (
	"context"

	"github.com/knowhy-io/knowhy-engine/pkg/models"
	"github.com/knowhy-io/knowhy-engine/pkg/repositories"
)

// FavoriteService lets users pin reports.
type FavoriteService interface {
	Add(ctx context.Context, userID int64, reportName string) error
	Remove(ctx context.Context, userID int64, reportName string) error
	List(ctx context.Context, userID int64) ([]*models.Favorite, error)
}

type favoriteService struct {
	favorites repositories.FavoriteRepository
}

// NewFavoriteService creates a FavoriteService with dependencies.
func NewFavoriteService(favorites repositories.FavoriteRepository) FavoriteService {
	return &favoriteService{favorites: favorites}
}

var _ FavoriteService = (*favoriteService)(nil)

func (s *favoriteService) Add(ctx context.Context, userID int64, reportName string) error {
	return s.favorites.Add(ctx, userID, reportName)
}

func (s *favoriteService) Remove(ctx context.Context, userID int64, reportName string) error {
	return s.favorites.Remove(ctx, userID, reportName)
}

func (s *favoriteService) List(ctx context.Context, userID int64) ([]*models.Favorite, error) {
	return s.favorites.ListByUser(ctx, userID)
}
