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
	"github.com/streetcredrx/credauth/internal/common"
	"github.com/streetcredrx/credauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qByEmail = `(?s)^SELECT\s+u\.id,.*FROM\s+users\s+u\s+LEFT\s+JOIN\s+profiles\s+p\s+ON\s+p\.id\s*=\s*u\.id\s+LEFT\s+JOIN\s+roles\s+r\s+ON\s+r\.id\s*=\s*p\.role_id\s+WHERE\s+LOWER\(u\.email\)\s*=\s*LOWER\(\$1\)\s+AND\s+u\.deleted_at\s+IS\s+NULL\s+LIMIT\s+1$`
	qByID    = `(?s)^SELECT\s+u\.id,.*FROM\s+users\s+u.*WHERE\s+u\.id\s*=\s*\$1\s+AND\s+u\.deleted_at\s+IS\s+NULL\s+LIMIT\s+1$`
	qInsUser = `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*encrypted_password,\s*email_confirmed_at,\s*confirmed_at,\s*raw_user_meta_data,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*NOW\(\),\s*NOW\(\),\s*\$3,\s*NOW\(\),\s*NOW\(\)\)\s*RETURNING\s+id,\s*email,.*updated_at\s*$`
	qInsProf = `(?s)^INSERT\s+INTO\s+profiles\s*\(id,\s*email,\s*first_name,\s*last_name,\s*role_id,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*NOW\(\),\s*NOW\(\)\)\s*$`
	qTouch   = `(?s)^UPDATE\s+users\s+SET\s+last_sign_in_at\s*=\s*NOW\(\),\s*updated_at\s*=\s*NOW\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`
)

var userColumns = []string{
	"id", "email", "encrypted_password", "email_confirmed_at", "is_super_admin",
	"created_at", "updated_at", "first_name", "last_name", "role_id", "role_name",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestFindByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userColumns).
		AddRow("u-1", "Foo@Bar.com", "$2a$12$hash", ts, false, ts, ts, "Ann", "Lee", int64(2), "pharmacist")
	mock.ExpectQuery(qByEmail).WithArgs("foo@bar.com").WillReturnRows(rows)

	got, err := repo.FindByEmail(context.Background(), "foo@bar.com")
	require.NoError(t, err)

	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "Foo@Bar.com", got.Email)
	require.NotNil(t, got.EncryptedPassword)
	assert.Equal(t, "$2a$12$hash", *got.EncryptedPassword)
	require.NotNil(t, got.EmailConfirmedAt)
	assert.True(t, got.EmailConfirmedAt.Equal(ts))
	assert.Equal(t, "Ann", *got.FirstName)
	assert.Equal(t, int64(2), *got.RoleID)
	assert.Equal(t, "pharmacist", *got.RoleName)
}

func TestFindByEmail_ProfileMissingIsTolerated(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userColumns).
		AddRow("u-legacy", "old@b.com", nil, nil, true, ts, ts, nil, nil, nil, nil)
	mock.ExpectQuery(qByEmail).WithArgs("old@b.com").WillReturnRows(rows)

	got, err := repo.FindByEmail(context.Background(), "old@b.com")
	require.NoError(t, err)
	assert.Nil(t, got.EncryptedPassword)
	assert.Nil(t, got.EmailConfirmedAt)
	assert.Nil(t, got.FirstName)
	assert.Nil(t, got.RoleID)
	assert.Nil(t, got.RoleName)
	assert.True(t, got.IsSuperAdmin)
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qByEmail).WithArgs("ghost@b.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@b.com")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindByEmail_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qByEmail).WithArgs("a@b.com").WillReturnError(errors.New("db down"))

	_, err := repo.FindByEmail(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	assert.False(t, errors.Is(err, common.ErrorNotFound))
}

func TestFindByID_IsIdempotent(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		rows := sqlmock.NewRows(userColumns).
			AddRow("u-1", "a@b.com", "$2a$", ts, false, ts, ts, "A", "B", int64(1), "user")
		mock.ExpectQuery(qByID).WithArgs("u-1").WillReturnRows(rows)
	}

	first, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	second, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)

	assert.Equal(t, first.Public(), second.Public())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qByID).WithArgs("deleted").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "deleted")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreateUserAndProfile_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(qInsUser).
		WithArgs("a@b.com", "$2a$12$hash", `{"first_name":"A","last_name":"B"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_super_admin", "email_confirmed_at", "created_at", "updated_at"}).
			AddRow("new-id", "a@b.com", false, ts, ts, ts))
	mock.ExpectExec(qInsProf).
		WithArgs("new-id", "a@b.com", "A", "B", models.DefaultRoleID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.CreateUserAndProfile(context.Background(), models.NewUser{
		Email: "a@b.com", PasswordHash: "$2a$12$hash", FirstName: "A", LastName: "B",
	})
	require.NoError(t, err)

	pub := got.Public()
	assert.Equal(t, "new-id", pub.ID)
	assert.True(t, pub.EmailVerified)
	require.NotNil(t, pub.RoleName)
	assert.Equal(t, "user", *pub.RoleName)
	assert.Equal(t, models.DefaultRoleID, *pub.RoleID)
}

func TestCreateUserAndProfile_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsUser).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_key"})

	_, err := repo.CreateUserAndProfile(context.Background(), models.NewUser{Email: "foo@bar.com", PasswordHash: "h", FirstName: "F", LastName: "B"})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestCreateUserAndProfile_ProfileInsertFails(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()

	mock.ExpectQuery(qInsUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_super_admin", "email_confirmed_at", "created_at", "updated_at"}).
			AddRow("new-id", "a@b.com", false, ts, ts, ts))
	mock.ExpectExec(qInsProf).WillReturnError(&pgconn.PgError{Code: "23503", Message: "role missing"})

	_, err := repo.CreateUserAndProfile(context.Background(), models.NewUser{Email: "a@b.com", PasswordHash: "h", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrDuplicateEmail))
	assert.Contains(t, err.Error(), "db error")
}

func TestTouchLastSignIn(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(qTouch).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastSignIn(context.Background(), "u-1"))
}

func TestTouchLastSignIn_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(qTouch).WithArgs("u-1").WillReturnError(errors.New("conn reset"))

	err := repo.TouchLastSignIn(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn reset")
}
