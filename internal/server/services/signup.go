// Package services contains server-side business logic. This file implements
// SignupService, the reconciler that resolves every signup request to exactly
// one user and the wallets relevant to that signup.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/cryptox"
	"github.com/dmitrijs2005/walletd/internal/dbx"
	"github.com/dmitrijs2005/walletd/internal/hdwallet"
	"github.com/dmitrijs2005/walletd/internal/server/auth"
	"github.com/dmitrijs2005/walletd/internal/server/config"
	"github.com/dmitrijs2005/walletd/internal/server/models"
	"github.com/dmitrijs2005/walletd/internal/server/repositories/repomanager"
)

// Profile carries the optional personally-identifying fields a signup may
// supply. Merging into an existing user is union-merge: a field overwrites
// only when supplied non-empty.
type Profile struct {
	FirstName         string
	LastName          string
	Email             string
	PhoneLoginEnabled bool
	PhoneUniqueID     string
}

// SignupRequest is a sealed union over the four signup variants. Adding a
// variant without extending the SignUp switch will not compile, since the
// switch is the only way a request reaches the reconciler.
type SignupRequest interface {
	signupMethod() models.SignupMethod
}

// SocialSignup resolves by (Platform, SocialID).
type SocialSignup struct {
	Platform string
	SocialID string
	Profile  Profile
}

// FreshWalletSignup always mints new secret material.
type FreshWalletSignup struct {
	WalletName string
	Profile    Profile
}

// SeedImportSignup resolves by the address derived from Mnemonic.
type SeedImportSignup struct {
	Mnemonic   string
	WalletName string
	Profile    Profile
}

// PrivateKeyImportSignup resolves by the address derived from PrivateKey.
// The stored mnemonic stays empty; a phrase cannot be reconstructed.
type PrivateKeyImportSignup struct {
	PrivateKey string
	WalletName string
	Profile    Profile
}

func (*SocialSignup) signupMethod() models.SignupMethod      { return models.SignupMethodSocial }
func (*FreshWalletSignup) signupMethod() models.SignupMethod { return models.SignupMethodWallet }
func (*SeedImportSignup) signupMethod() models.SignupMethod  { return models.SignupMethodSeedImport }
func (*PrivateKeyImportSignup) signupMethod() models.SignupMethod {
	return models.SignupMethodPrivateKeyImport
}

// SignupResult is the reconciliation outcome: the resolved user, a freshly
// issued access token, and the wallets relevant to this call. Wallets holds
// the user's full live set only on the social existing-user branch.
type SignupResult struct {
	Token     string
	TokenType string
	User      *models.User
	Wallets   []*models.Wallet
	IsNewUser bool
}

// SignupService reconciles signup requests against the store, creating users
// and wallets only when no existing identity matches.
type SignupService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	sealer                *cryptox.Sealer
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

// NewSignupService constructs a SignupService using repositories, the
// credential sealer, and server config.
func NewSignupService(db *sql.DB, m repomanager.RepositoryManager, sealer *cryptox.Sealer, cfg *config.Config) *SignupService {
	return &SignupService{
		db:                    db,
		repomanager:           m,
		sealer:                sealer,
		jwtSecret:             []byte(cfg.JWTSecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
	}
}

// SignUp dispatches on the request variant. Validation failures surface
// before any store write; uniqueness conflicts are recovered internally by
// re-reading and following the existing-found branch.
func (s *SignupService) SignUp(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	switch r := req.(type) {
	case *SocialSignup:
		if r.Platform == "" || r.SocialID == "" {
			return nil, fmt.Errorf("%w: social platform and id are required", common.ErrorValidation)
		}
		return s.signUpSocial(ctx, r)
	case *FreshWalletSignup:
		return s.signUpFreshWallet(ctx, r)
	case *SeedImportSignup:
		if r.Mnemonic == "" {
			return nil, fmt.Errorf("%w: mnemonic is required", common.ErrorValidation)
		}
		account, err := hdwallet.FromMnemonic(r.Mnemonic)
		if err != nil {
			return nil, err
		}
		return s.importAccount(ctx, models.SignupMethodSeedImport, account, r.WalletName, r.Profile)
	case *PrivateKeyImportSignup:
		if r.PrivateKey == "" {
			return nil, fmt.Errorf("%w: private key is required", common.ErrorValidation)
		}
		account, err := hdwallet.FromPrivateKey(r.PrivateKey)
		if err != nil {
			return nil, err
		}
		return s.importAccount(ctx, models.SignupMethodPrivateKeyImport, account, r.WalletName, r.Profile)
	default:
		return nil, fmt.Errorf("%w: unknown signup method", common.ErrorValidation)
	}
}

func (s *SignupService) signUpSocial(ctx context.Context, r *SocialSignup) (*SignupResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetBySocialID(ctx, r.Platform, r.SocialID)
	if err == nil {
		return s.existingUserResult(ctx, user, r.Profile, nil)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}

	newUser := newUserFromProfile(models.SignupMethodSocial, r.Profile)
	newUser.SocialPlatform = r.Platform
	newUser.SocialID = r.SocialID

	user, wallet, err := s.createUserWithFreshWallet(ctx, newUser, "")
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			// Lost the insert race: some concurrent signup registered this
			// social identity first. Re-read and reuse it.
			user, rerr := repo.GetBySocialID(ctx, r.Platform, r.SocialID)
			if rerr != nil {
				return nil, common.ErrorConflict
			}
			return s.existingUserResult(ctx, user, r.Profile, nil)
		}
		return nil, err
	}

	return s.newUserResult(user, wallet)
}

func (s *SignupService) signUpFreshWallet(ctx context.Context, r *FreshWalletSignup) (*SignupResult, error) {
	account, err := hdwallet.Generate()
	if err != nil {
		return nil, err
	}

	newUser := newUserFromProfile(models.SignupMethodWallet, r.Profile)

	user, wallet, err := s.createUserWithWallet(ctx, newUser, account, r.WalletName)
	if err != nil {
		return nil, err
	}

	return s.newUserResult(user, wallet)
}

// importAccount reconciles an imported secret by its derived address. An
// existing live wallet at that address means the caller is its owner coming
// back: the owner's user record is reused, never duplicated.
func (s *SignupService) importAccount(ctx context.Context, method models.SignupMethod, account *hdwallet.Account, walletName string, profile Profile) (*SignupResult, error) {
	walletRepo := s.repomanager.Wallets(s.db)

	wallet, err := walletRepo.GetByAddress(ctx, account.Address, models.NetworkSupra)
	if err == nil {
		return s.reuseWalletOwner(ctx, wallet, profile)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}

	newUser := newUserFromProfile(method, profile)

	user, created, err := s.createUserWithWallet(ctx, newUser, account, walletName)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			existing, rerr := walletRepo.GetByAddress(ctx, account.Address, models.NetworkSupra)
			if rerr != nil {
				// The address is bound but not visible: a soft-deleted
				// wallet holds it. It is never released to a new owner.
				return nil, common.ErrorConflict
			}
			return s.reuseWalletOwner(ctx, existing, profile)
		}
		return nil, err
	}

	return s.newUserResult(user, created)
}

func (s *SignupService) reuseWalletOwner(ctx context.Context, wallet *models.Wallet, profile Profile) (*SignupResult, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, wallet.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}
	return s.existingUserResult(ctx, user, profile, []*models.Wallet{wallet})
}

// existingUserResult finishes every isNewUser=false branch: union-merge the
// supplied profile, issue a token, and return the relevant wallets. A nil
// wallets argument means "fetch the user's full live set" (social branch).
func (s *SignupService) existingUserResult(ctx context.Context, user *models.User, profile Profile, wallets []*models.Wallet) (*SignupResult, error) {
	if mergeProfile(user, profile) {
		updated, err := s.repomanager.Users(s.db).UpdateProfile(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
		}
		user = updated
	}

	if wallets == nil {
		list, err := s.repomanager.Wallets(s.db).ListByOwner(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
		}
		wallets = list
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	return &SignupResult{
		Token:     token,
		TokenType: common.TokenTypeBearer,
		User:      user,
		Wallets:   wallets,
		IsNewUser: false,
	}, nil
}

func (s *SignupService) newUserResult(user *models.User, wallet *models.Wallet) (*SignupResult, error) {
	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &SignupResult{
		Token:     token,
		TokenType: common.TokenTypeBearer,
		User:      user,
		Wallets:   []*models.Wallet{wallet},
		IsNewUser: true,
	}, nil
}

// createUserWithFreshWallet mints new secret material before opening the
// transaction; only the store writes run inside it.
func (s *SignupService) createUserWithFreshWallet(ctx context.Context, user *models.User, walletName string) (*models.User, *models.Wallet, error) {
	account, err := hdwallet.Generate()
	if err != nil {
		return nil, nil, err
	}
	return s.createUserWithWallet(ctx, user, account, walletName)
}

// createUserWithWallet persists a new user and their wallet atomically.
// Secrets are sealed before the transaction opens. A unique violation on
// either insert rolls the whole pair back and surfaces common.ErrorConflict
// for the caller to reconcile.
func (s *SignupService) createUserWithWallet(ctx context.Context, user *models.User, account *hdwallet.Account, walletName string) (*models.User, *models.Wallet, error) {
	sealedMnemonic := ""
	if account.Mnemonic != "" {
		sealed, err := s.sealer.Seal(account.Mnemonic)
		if err != nil {
			return nil, nil, err
		}
		sealedMnemonic = sealed
	}
	sealedPrivateKey, err := s.sealer.Seal(account.PrivateKey)
	if err != nil {
		return nil, nil, err
	}

	var wallet *models.Wallet
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		wallet, err = s.repomanager.Wallets(tx).Create(ctx, &models.Wallet{
			OwnerID:          user.ID,
			Address:          account.Address,
			Network:          models.NetworkSupra,
			Name:             walletName,
			SealedMnemonic:   sealedMnemonic,
			SealedPrivateKey: sealedPrivateKey,
		})
		return err
	}); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, nil, common.ErrorConflict
		}
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorPersistence, err)
	}

	return user, wallet, nil
}

func (s *SignupService) issueToken(user *models.User) (string, error) {
	token, err := auth.GenerateToken(user.ID, string(user.UserType), s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

func newUserFromProfile(method models.SignupMethod, p Profile) *models.User {
	return &models.User{
		SignupMethod:      method,
		UserType:          models.UserTypeUser,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Email:             p.Email,
		PhoneLoginEnabled: p.PhoneLoginEnabled,
		PhoneUniqueID:     p.PhoneUniqueID,
	}
}

// mergeProfile applies union-merge semantics and reports whether anything
// changed. Empty incoming fields never erase stored values.
func mergeProfile(user *models.User, p Profile) bool {
	changed := false
	if p.FirstName != "" && p.FirstName != user.FirstName {
		user.FirstName = p.FirstName
		changed = true
	}
	if p.LastName != "" && p.LastName != user.LastName {
		user.LastName = p.LastName
		changed = true
	}
	if p.Email != "" && p.Email != user.Email {
		user.Email = p.Email
		changed = true
	}
	if p.PhoneLoginEnabled && !user.PhoneLoginEnabled {
		user.PhoneLoginEnabled = true
		changed = true
	}
	if p.PhoneUniqueID != "" && p.PhoneUniqueID != user.PhoneUniqueID {
		user.PhoneUniqueID = p.PhoneUniqueID
		changed = true
	}
	return changed
}
