package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/cryptox"
	"github.com/dmitrijs2005/walletd/internal/dbx"
	"github.com/dmitrijs2005/walletd/internal/server/config"
	"github.com/dmitrijs2005/walletd/internal/server/models"
	usersrepo "github.com/dmitrijs2005/walletd/internal/server/repositories/users"
	walletsrepo "github.com/dmitrijs2005/walletd/internal/server/repositories/wallets"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newTestSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	sealer, err := cryptox.NewSealer(key)
	if err != nil {
		t.Fatalf("NewSealer error: %v", err)
	}
	return sealer
}

func testConfig() *config.Config {
	return &config.Config{JWTSecretKey: "k", TokenValidityDuration: time.Hour}
}

// fakeUsersRepo keeps users in memory. socialMisses makes the next N social
// lookups miss even when the row exists, to replay a lost insert race.
type fakeUsersRepo struct {
	seq          int
	byID         map[string]*models.User
	socialMisses int
	createErr    error
	getErr       error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if u.SocialID != "" {
		for _, e := range f.byID {
			if e.SocialPlatform == u.SocialPlatform && e.SocialID == u.SocialID {
				return nil, common.ErrorConflict
			}
		}
	}
	f.seq++
	if u.ID == "" {
		u.ID = fmt.Sprintf("u-%d", f.seq)
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	f.byID[u.ID] = cloneUser(u)
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (f *fakeUsersRepo) GetBySocialID(ctx context.Context, platform, socialID string) (*models.User, error) {
	if f.socialMisses > 0 {
		f.socialMisses--
		return nil, common.ErrorNotFound
	}
	for _, u := range f.byID {
		if u.SocialPlatform == platform && u.SocialID == socialID {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := f.byID[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	u.UpdatedAt = time.Now()
	f.byID[u.ID] = cloneUser(u)
	return u, nil
}

// fakeWalletsRepo keeps every row, soft-deleted ones included, so the unique
// address binding survives deletion just like the real constraint.
// addressMisses works like fakeUsersRepo.socialMisses.
type fakeWalletsRepo struct {
	seq           int
	rows          []*models.Wallet
	addressMisses int
	createErr     error
}

func cloneWallet(w *models.Wallet) *models.Wallet {
	cp := *w
	return &cp
}

func (f *fakeWalletsRepo) Create(ctx context.Context, w *models.Wallet) (*models.Wallet, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, e := range f.rows {
		if e.Address == w.Address && e.Network == w.Network {
			return nil, common.ErrorConflict
		}
	}
	f.seq++
	if w.ID == "" {
		w.ID = fmt.Sprintf("w-%d", f.seq)
	}
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	f.rows = append(f.rows, cloneWallet(w))
	return w, nil
}

func (f *fakeWalletsRepo) GetByAddress(ctx context.Context, address string, network models.Network) (*models.Wallet, error) {
	if f.addressMisses > 0 {
		f.addressMisses--
		return nil, common.ErrorNotFound
	}
	for _, w := range f.rows {
		if w.Address == address && w.Network == network && !w.Deleted {
			return cloneWallet(w), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeWalletsRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Wallet, error) {
	result := []*models.Wallet{}
	for _, w := range f.rows {
		if w.OwnerID == ownerID && !w.Deleted {
			result = append(result, cloneWallet(w))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, nil
}

func (f *fakeWalletsRepo) Rename(ctx context.Context, ownerID, address string, network models.Network, name string) error {
	for _, w := range f.rows {
		if w.OwnerID == ownerID && w.Address == address && w.Network == network && !w.Deleted {
			w.Name = name
			w.UpdatedAt = time.Now()
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeWalletsRepo) SoftDelete(ctx context.Context, ownerID, address string, network models.Network) error {
	for _, w := range f.rows {
		if w.OwnerID == ownerID && w.Address == address && w.Network == network && !w.Deleted {
			w.Deleted = true
			w.UpdatedAt = time.Now()
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	w *fakeWalletsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), w: &fakeWalletsRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
func (m *fakeRepoManager) Wallets(db dbx.DBTX) walletsrepo.Repository  { return m.w }
