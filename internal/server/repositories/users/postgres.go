package users

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

// Create inserts a new account row. Social identity columns are stored as
// NULL when empty so the partial unique index only guards real identities.
// A unique violation surfaces as common.ErrorConflict; the caller re-reads
// and continues down the existing-account branch.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, signup_method, user_type, first_name, last_name, email,
		     social_platform, social_id, phone_login_enabled, phone_unique_id)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.SignupMethod, user.UserType, user.FirstName, user.LastName, user.Email,
		user.SocialPlatform, user.SocialID, user.PhoneLoginEnabled, user.PhoneUniqueID).
		Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, signup_method, user_type, first_name, last_name, email,
		     COALESCE(social_platform, ''), COALESCE(social_id, ''),
		     phone_login_enabled, phone_unique_id, created_at, updated_at
		 FROM users
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetBySocialID(ctx context.Context, platform string, socialID string) (*models.User, error) {
	query :=
		`SELECT id, signup_method, user_type, first_name, last_name, email,
		     COALESCE(social_platform, ''), COALESCE(social_id, ''),
		     phone_login_enabled, phone_unique_id, created_at, updated_at
		 FROM users
		 WHERE social_platform = $1 AND social_id = $2
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, platform, socialID))
}

// UpdateProfile persists the mutable profile fields and bumps updated_at.
// Identity columns (signup method, social identity) are immutable here.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users
		 SET first_name = $2, last_name = $3, email = $4,
		     phone_login_enabled = $5, phone_unique_id = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Email,
		user.PhoneLoginEnabled, user.PhoneUniqueID).
		Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanOne(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.SignupMethod, &user.UserType,
		&user.FirstName, &user.LastName, &user.Email,
		&user.SocialPlatform, &user.SocialID,
		&user.PhoneLoginEnabled, &user.PhoneUniqueID,
		&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
