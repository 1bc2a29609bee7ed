package wallets

import (
	"context"

	"github.com/dmitrijs2005/walletd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, wallet *models.Wallet) (*models.Wallet, error)
	GetByAddress(ctx context.Context, address string, network models.Network) (*models.Wallet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Wallet, error)
	Rename(ctx context.Context, ownerID string, address string, network models.Network, name string) error
	SoftDelete(ctx context.Context, ownerID string, address string, network models.Network) error
}
