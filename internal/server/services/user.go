package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/server/auth"
	"github.com/dmitrijs2005/walletd/internal/server/config"
	"github.com/dmitrijs2005/walletd/internal/server/models"
	"github.com/dmitrijs2005/walletd/internal/server/repositories/repomanager"
)

// UserService serves the authenticated user's own record: profile reads and
// profile updates.
type UserService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                    db,
		repomanager:           m,
		jwtSecret:             []byte(cfg.JWTSecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
	}
}

// Get returns the user record for userID.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}
	return user, nil
}

// UpdateProfile union-merges the supplied fields into the stored record and
// returns the updated user together with a freshly issued token, so a client
// that changed its profile keeps a token reflecting current claims.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, profile Profile) (*models.User, string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorNotFound
		}
		return nil, "", fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}

	if mergeProfile(user, profile) {
		updated, err := repo.UpdateProfile(ctx, user)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", common.ErrorPersistence, err)
		}
		user = updated
	}

	token, err := auth.GenerateToken(user.ID, string(user.UserType), s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	return user, token, nil
}
