package users

import (
	"context"

	"github.com/dmitrijs2005/walletd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetBySocialID(ctx context.Context, platform string, socialID string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) (*models.User, error)
}
