package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const selectCols = `SELECT\s+id,\s*signup_method,\s*user_type,\s*first_name,\s*last_name,\s*email,\s*COALESCE\(social_platform,\s*''\),\s*COALESCE\(social_id,\s*''\),\s*phone_login_enabled,\s*phone_unique_id,\s*created_at,\s*updated_at`

func userRows(u *models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "signup_method", "user_type", "first_name", "last_name", "email",
		"social_platform", "social_id", "phone_login_enabled", "phone_unique_id",
		"created_at", "updated_at",
	}).AddRow(u.ID, string(u.SignupMethod), string(u.UserType), u.FirstName, u.LastName, u.Email,
		u.SocialPlatform, u.SocialID, u.PhoneLoginEnabled, u.PhoneUniqueID, u.CreatedAt, u.UpdatedAt)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*signup_method,.*RETURNING\s+created_at,\s*updated_at\s*$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)
	mock.ExpectQuery(q).
		WithArgs("u-1", "social", "user", "Alice", "", "alice@example.com", "google", "g-123", false, "").
		WillReturnRows(rows)

	u := &models.User{
		ID:             "u-1",
		SignupMethod:   models.SignupMethodSocial,
		UserType:       models.UserTypeUser,
		FirstName:      "Alice",
		Email:          "alice@example.com",
		SocialPlatform: "google",
		SocialID:       "g-123",
	}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_AssignsID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*signup_method,.*RETURNING\s+created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	got, err := repo.Create(context.Background(), &models.User{SignupMethod: models.SignupMethodWallet, UserType: models.UserTypeUser})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected generated ID")
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*signup_method,`

	mock.ExpectQuery(q).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_social_identity_key"})

	_, err := repo.Create(context.Background(), &models.User{
		SignupMethod:   models.SignupMethodSocial,
		UserType:       models.UserTypeUser,
		SocialPlatform: "google",
		SocialID:       "g-123",
	})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*signup_method,`

	mock.ExpectQuery(q).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{SignupMethod: models.SignupMethodSocial, UserType: models.UserTypeUser})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^` + selectCols + `\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	want := &models.User{
		ID:             "u-1",
		SignupMethod:   models.SignupMethodSocial,
		UserType:       models.UserTypeUser,
		FirstName:      "Alice",
		Email:          "alice@example.com",
		SocialPlatform: "google",
		SocialID:       "g-123",
	}
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(userRows(want))

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ID != "u-1" || got.SocialID != "g-123" || got.SignupMethod != models.SignupMethodSocial {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^` + selectCols + `\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetBySocialID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^` + selectCols + `\s+FROM\s+users\s+WHERE\s+social_platform\s*=\s*\$1\s+AND\s+social_id\s*=\s*\$2\s*$`

	want := &models.User{
		ID:             "u-2",
		SignupMethod:   models.SignupMethodSocial,
		UserType:       models.UserTypeUser,
		SocialPlatform: "apple",
		SocialID:       "a-9",
	}
	mock.ExpectQuery(q).WithArgs("apple", "a-9").WillReturnRows(userRows(want))

	got, err := repo.GetBySocialID(context.Background(), "apple", "a-9")
	if err != nil {
		t.Fatalf("GetBySocialID error: %v", err)
	}
	if got.ID != "u-2" || got.SocialPlatform != "apple" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetBySocialID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^` + selectCols + `\s+FROM\s+users\s+WHERE\s+social_platform\s*=\s*\$1\s+AND\s+social_id\s*=\s*\$2\s*$`

	mock.ExpectQuery(q).WithArgs("apple", "nobody").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySocialID(context.Background(), "apple", "nobody")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+first_name\s*=\s*\$2,.*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u-1", "Alice", "Smith", "alice@example.com", true, "phone-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	u := &models.User{
		ID:                "u-1",
		FirstName:         "Alice",
		LastName:          "Smith",
		Email:             "alice@example.com",
		PhoneLoginEnabled: true,
		PhoneUniqueID:     "phone-1",
	}
	got, err := repo.UpdateProfile(context.Background(), u)
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at not refreshed: %+v", got)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+first_name\s*=\s*\$2,`

	mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateProfile(context.Background(), &models.User{ID: "ghost"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateProfile_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+first_name\s*=\s*\$2,`

	mock.ExpectQuery(q).WillReturnError(errors.New("db err"))

	_, err := repo.UpdateProfile(context.Background(), &models.User{ID: "u-1"})
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
