package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/cryptox"
	"github.com/dmitrijs2005/walletd/internal/dbx"
	"github.com/dmitrijs2005/walletd/internal/hdwallet"
	"github.com/dmitrijs2005/walletd/internal/server/models"
	"github.com/dmitrijs2005/walletd/internal/server/repositories/repomanager"
)

// WalletImport is the payload for importing an existing account into an
// authenticated user. Exactly one of Mnemonic or PrivateKey must be set.
type WalletImport struct {
	Mnemonic   string
	PrivateKey string
	Name       string
}

// WalletService manages wallets of an already-authenticated user: creation,
// import, rename, soft-delete, and listing.
type WalletService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sealer      *cryptox.Sealer
}

// NewWalletService constructs a WalletService.
func NewWalletService(db *sql.DB, m repomanager.RepositoryManager, sealer *cryptox.Sealer) *WalletService {
	return &WalletService{db: db, repomanager: m, sealer: sealer}
}

// Create mints a fresh account for ownerID and persists it sealed.
func (s *WalletService) Create(ctx context.Context, ownerID string, name string) (*models.Wallet, error) {
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}

	account, err := hdwallet.Generate()
	if err != nil {
		return nil, err
	}

	return s.storeAccount(ctx, ownerID, account, name)
}

// Import recovers the account from the supplied secret material and binds it
// to ownerID. Importing an address the owner already holds returns the
// existing wallet unchanged; an address held by anyone else (including a
// soft-deleted binding) is a conflict.
func (s *WalletService) Import(ctx context.Context, ownerID string, req *WalletImport) (*models.Wallet, error) {
	account, err := s.recoverAccount(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.repomanager.Wallets(s.db).GetByAddress(ctx, account.Address, models.NetworkSupra)
	if err == nil {
		return s.resolveExisting(existing, ownerID)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}

	wallet, err := s.storeAccount(ctx, ownerID, account, req.Name)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			existing, rerr := s.repomanager.Wallets(s.db).GetByAddress(ctx, account.Address, models.NetworkSupra)
			if rerr != nil {
				return nil, common.ErrorConflict
			}
			return s.resolveExisting(existing, ownerID)
		}
		return nil, err
	}

	return wallet, nil
}

// Rename updates the display name of the owner's live wallet at address and
// returns the updated record. Repeating the same rename is a no-op success.
func (s *WalletService) Rename(ctx context.Context, ownerID string, address string, name string) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Wallets(tx)
		if err := repo.Rename(ctx, ownerID, address, models.NetworkSupra, name); err != nil {
			return err
		}
		var err error
		wallet, err = repo.GetByAddress(ctx, address, models.NetworkSupra)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}
	return wallet, nil
}

// SoftDelete hides the owner's wallet at address from all read paths. The
// lookup excludes already-deleted rows, so deleting twice is NotFound.
func (s *WalletService) SoftDelete(ctx context.Context, ownerID string, address string) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Wallets(tx)
		found, err := repo.GetByAddress(ctx, address, models.NetworkSupra)
		if err != nil {
			return err
		}
		if found.OwnerID != ownerID {
			return common.ErrorNotFound
		}
		if err := repo.SoftDelete(ctx, ownerID, address, models.NetworkSupra); err != nil {
			return err
		}
		found.Deleted = true
		wallet = found
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}
	return wallet, nil
}

// List returns one page of the owner's live wallets, most recently updated
// first, plus the total live count regardless of the page window. A
// limit <= 0 means no limit.
func (s *WalletService) List(ctx context.Context, ownerID string, limit int, offset int) ([]*models.Wallet, int, error) {
	all, err := s.repomanager.Wallets(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*models.Wallet{}, total, nil
	}
	page := all[offset:]
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}
	return page, total, nil
}

func (s *WalletService) recoverAccount(req *WalletImport) (*hdwallet.Account, error) {
	switch {
	case req.Mnemonic != "" && req.PrivateKey != "":
		return nil, fmt.Errorf("%w: supply either a mnemonic or a private key, not both", common.ErrorValidation)
	case req.Mnemonic != "":
		return hdwallet.FromMnemonic(req.Mnemonic)
	case req.PrivateKey != "":
		return hdwallet.FromPrivateKey(req.PrivateKey)
	default:
		return nil, fmt.Errorf("%w: a mnemonic or a private key is required", common.ErrorValidation)
	}
}

func (s *WalletService) resolveExisting(wallet *models.Wallet, ownerID string) (*models.Wallet, error) {
	if wallet.OwnerID == ownerID {
		return wallet, nil
	}
	return nil, common.ErrorConflict
}

func (s *WalletService) storeAccount(ctx context.Context, ownerID string, account *hdwallet.Account, name string) (*models.Wallet, error) {
	sealedMnemonic := ""
	if account.Mnemonic != "" {
		sealed, err := s.sealer.Seal(account.Mnemonic)
		if err != nil {
			return nil, err
		}
		sealedMnemonic = sealed
	}
	sealedPrivateKey, err := s.sealer.Seal(account.PrivateKey)
	if err != nil {
		return nil, err
	}

	wallet, err := s.repomanager.Wallets(s.db).Create(ctx, &models.Wallet{
		OwnerID:          ownerID,
		Address:          account.Address,
		Network:          models.NetworkSupra,
		Name:             name,
		SealedMnemonic:   sealedMnemonic,
		SealedPrivateKey: sealedPrivateKey,
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}
	return wallet, nil
}
