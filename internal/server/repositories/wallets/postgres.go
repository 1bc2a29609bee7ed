package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/dbx"
	"github.com/dmitrijs2005/walletd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet row. The UNIQUE (address, network) constraint
// spans soft-deleted rows too, so an insert against a retired address also
// comes back as common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, wallet *models.Wallet) (*models.Wallet, error) {

	if wallet.ID == "" {
		wallet.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO wallets (id, owner_id, address, network, name, sealed_mnemonic, sealed_private_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		wallet.ID, wallet.OwnerID, wallet.Address, wallet.Network,
		wallet.Name, wallet.SealedMnemonic, wallet.SealedPrivateKey).
		Scan(&wallet.CreatedAt, &wallet.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return wallet, nil
}

// GetByAddress returns the live wallet bound to (address, network).
// Soft-deleted rows are invisible here even though they still hold the
// address binding.
func (r *PostgresRepository) GetByAddress(ctx context.Context, address string, network models.Network) (*models.Wallet, error) {
	query :=
		`SELECT id, owner_id, address, network, name, sealed_mnemonic, sealed_private_key,
		     is_deleted, created_at, updated_at
		 FROM wallets
		 WHERE address = $1 AND network = $2 AND NOT is_deleted
		 `

	wallet := &models.Wallet{}
	err := r.db.QueryRowContext(ctx, query, address, network).
		Scan(&wallet.ID, &wallet.OwnerID, &wallet.Address, &wallet.Network,
			&wallet.Name, &wallet.SealedMnemonic, &wallet.SealedPrivateKey,
			&wallet.Deleted, &wallet.CreatedAt, &wallet.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return wallet, nil
}

// ListByOwner returns the owner's live wallets, most recently updated first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Wallet, error) {
	query :=
		`SELECT id, owner_id, address, network, name, sealed_mnemonic, sealed_private_key,
		     is_deleted, created_at, updated_at
		 FROM wallets
		 WHERE owner_id = $1 AND NOT is_deleted
		 ORDER BY updated_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Wallet{}
	for rows.Next() {
		wallet := &models.Wallet{}
		err := rows.Scan(&wallet.ID, &wallet.OwnerID, &wallet.Address, &wallet.Network,
			&wallet.Name, &wallet.SealedMnemonic, &wallet.SealedPrivateKey,
			&wallet.Deleted, &wallet.CreatedAt, &wallet.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, ownerID string, address string, network models.Network, name string) error {
	query :=
		`UPDATE wallets
		 SET name = $4, updated_at = now()
		 WHERE owner_id = $1 AND address = $2 AND network = $3 AND NOT is_deleted
		 `

	return r.execOwned(ctx, query, ownerID, address, network, name)
}

// SoftDelete hides the wallet from reads while keeping the row, so the
// address stays bound and can never be re-registered by another account.
func (r *PostgresRepository) SoftDelete(ctx context.Context, ownerID string, address string, network models.Network) error {
	query :=
		`UPDATE wallets
		 SET is_deleted = TRUE, updated_at = now()
		 WHERE owner_id = $1 AND address = $2 AND network = $3 AND NOT is_deleted
		 `

	return r.execOwned(ctx, query, ownerID, address, network)
}

func (r *PostgresRepository) execOwned(ctx context.Context, query string, ownerID string, address string, network models.Network, extra ...any) error {
	args := append([]any{ownerID, address, network}, extra...)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
