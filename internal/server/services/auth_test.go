package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/streetcredrx/credauth/internal/common"
	"github.com/streetcredrx/credauth/internal/cryptox"
	"github.com/streetcredrx/credauth/internal/dbx"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/auth"
	"github.com/streetcredrx/credauth/internal/server/models"
	usersrepo "github.com/streetcredrx/credauth/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testUserID = "6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f"

func ptr[T any](v T) *T { return &v }

type fakeUsersRepo struct {
	byEmail    *models.UserWithProfile
	byEmailErr error
	byID       *models.UserWithProfile
	byIDErr    error
	createErr  error
	touchErr   error

	calls       []string
	lookupEmail string
	created     *models.NewUser
}

func (f *fakeUsersRepo) FindByEmail(_ context.Context, email string) (*models.UserWithProfile, error) {
	f.calls = append(f.calls, "FindByEmail")
	f.lookupEmail = email
	return f.byEmail, f.byEmailErr
}

func (f *fakeUsersRepo) FindByID(_ context.Context, id string) (*models.UserWithProfile, error) {
	f.calls = append(f.calls, "FindByID")
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byID, nil
}

func (f *fakeUsersRepo) CreateUserAndProfile(_ context.Context, in models.NewUser) (*models.UserWithProfile, error) {
	f.calls = append(f.calls, "CreateUserAndProfile")
	f.created = &in
	if f.createErr != nil {
		return nil, f.createErr
	}
	now := time.Now()
	return &models.UserWithProfile{
		ID: testUserID, Email: in.Email, EncryptedPassword: &in.PasswordHash, EmailConfirmedAt: &now,
		CreatedAt: &now, UpdatedAt: &now, FirstName: &in.FirstName, LastName: &in.LastName,
		RoleID: ptr(in.RoleID), RoleName: ptr(models.RoleUser),
	}, nil
}

func (f *fakeUsersRepo) TouchLastSignIn(context.Context, string) error {
	f.calls = append(f.calls, "TouchLastSignIn")
	return f.touchErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.u }

type fixture struct {
	svc    *AuthService
	repo   *fakeUsersRepo
	mock   sqlmock.Sqlmock
	tokens *auth.TokenService
	hasher *cryptox.Hasher
	slept  []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		repo:   &fakeUsersRepo{},
		mock:   mock,
		tokens: auth.NewTokenService([]byte("test-secret"), 12*time.Hour, 30*24*time.Hour),
		hasher: cryptox.NewHasher(bcrypt.MinCost),
	}
	f.svc = NewAuthService(db, &fakeRepoManager{u: f.repo}, f.hasher, f.tokens, logging.Discard())
	f.svc.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	return f
}

func (f *fixture) storedUser(t *testing.T, password string) *models.UserWithProfile {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	now := time.Now()
	return &models.UserWithProfile{
		ID: testUserID, Email: "a@b.com", EncryptedPassword: &hash, EmailConfirmedAt: &now,
		CreatedAt: &now, UpdatedAt: &now, FirstName: ptr("A"), LastName: ptr("B"),
		RoleID: ptr(int64(2)), RoleName: ptr("pharmacist"),
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.repo.byEmail = f.storedUser(t, "longenough")

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "  A@B.com ", Password: "longenough", RememberMe: true})
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", f.repo.lookupEmail, "email must be trimmed and lowercased")
	assert.Equal(t, []string{"FindByEmail", "TouchLastSignIn"}, f.repo.calls)
	assert.Empty(t, f.slept)
	assert.Equal(t, testUserID, res.User.ID)

	p, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, p.Sub)
	assert.Equal(t, "pharmacist", *p.Role)
	assert.True(t, p.RememberMe)

	claims := &auth.Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(res.Token, claims)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestLogin_SuperAdminFallbackRole(t *testing.T) {
	f := newFixture(t)
	u := f.storedUser(t, "longenough")
	u.RoleName, u.RoleID, u.IsSuperAdmin = nil, nil, true
	f.repo.byEmail = u

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "longenough"})
	require.NoError(t, err)

	p, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	require.NotNil(t, p.Role)
	assert.Equal(t, "super_admin", *p.Role)
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)

	for _, in := range []LoginInput{{Email: "", Password: "x"}, {Email: "a@b.com"}, {Email: "   ", Password: "x"}} {
		_, err := f.svc.Login(context.Background(), in)
		require.ErrorIs(t, err, common.ErrMissingCredentials)
		require.ErrorIs(t, err, common.ErrValidation)
	}
	assert.Empty(t, f.repo.calls)
}

func TestLogin_RejectionsLookAlike(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{name: "unknown email", setup: func(f *fixture) { f.repo.byEmailErr = common.ErrorNotFound }},
		{name: "wrong password", setup: func(f *fixture) { f.repo.byEmail = f.storedUser(t, "longenough") }},
		{name: "no password hash", setup: func(f *fixture) {
			u := f.storedUser(t, "longenough")
			u.EncryptedPassword = nil
			f.repo.byEmail = u
		}},
		{name: "malformed hash", setup: func(f *fixture) {
			u := f.storedUser(t, "longenough")
			u.EncryptedPassword = ptr("not-a-bcrypt-hash")
			f.repo.byEmail = u
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "wrong-password"})
			require.ErrorIs(t, err, common.ErrInvalidCredentials)
			assert.Equal(t, []time.Duration{InvalidLoginDelay}, f.slept)
			assert.NotContains(t, f.repo.calls, "TouchLastSignIn")
		})
	}
}

func TestLogin_InvalidCredentialsWaitAtLeastDelay(t *testing.T) {
	f := newFixture(t)
	f.svc.sleep = time.Sleep
	f.repo.byEmailErr = common.ErrorNotFound

	start := time.Now()
	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@b.com", Password: "whatever1"})
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.GreaterOrEqual(t, time.Since(start), InvalidLoginDelay)
}

func TestLogin_RepositoryFailureIsNotCredentialsError(t *testing.T) {
	f := newFixture(t)
	f.repo.byEmailErr = errors.New("db error: connection refused")

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "longenough"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrInvalidCredentials))
	assert.Empty(t, f.slept)
}

func TestLogin_TouchFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.byEmail = f.storedUser(t, "longenough")
	f.repo.touchErr = errors.New("db error: timeout")

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "longenough"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "touch last sign in")
}

func TestSignup_Success(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Signup(context.Background(), SignupInput{
		Email: " New@Pharmacy.org ", Password: "longenough", FirstName: " A ", LastName: "B",
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	require.NotNil(t, f.repo.created)
	assert.Equal(t, "new@pharmacy.org", f.repo.created.Email)
	assert.Equal(t, "A", f.repo.created.FirstName)
	assert.Equal(t, models.DefaultRoleID, f.repo.created.RoleID)
	assert.True(t, f.hasher.Verify("longenough", f.repo.created.PasswordHash))

	assert.Equal(t, "user", *res.User.RoleName)
	assert.True(t, res.User.EmailVerified)

	p, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.Sub)
	assert.Equal(t, "user", *p.Role)
	assert.False(t, p.RememberMe)
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SignupInput
		want error
	}{
		{name: "missing first name", in: SignupInput{Email: "a@b.com", Password: "longenough", LastName: "B"}, want: common.ErrMissingSignupFields},
		{name: "blank last name", in: SignupInput{Email: "a@b.com", Password: "longenough", FirstName: "A", LastName: "  "}, want: common.ErrMissingSignupFields},
		{name: "missing email", in: SignupInput{Password: "longenough", FirstName: "A", LastName: "B"}, want: common.ErrMissingSignupFields},
		{name: "seven characters", in: SignupInput{Email: "a@b.com", Password: "1234567", FirstName: "A", LastName: "B"}, want: common.ErrPasswordTooShort},
		{name: "over 72 bytes", in: SignupInput{Email: "a@b.com", Password: strings.Repeat("p", 73), FirstName: "A", LastName: "B"}, want: common.ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Signup(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Empty(t, f.repo.calls)
		})
	}
}

func TestSignup_EightCharacterPasswordAccepted(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Password: "12345678", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
}

func TestSignup_DuplicateEmailRollsBack(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = common.ErrDuplicateEmail
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Signup(context.Background(), SignupInput{Email: "Foo@Bar.com", Password: "longenough", FirstName: "F", LastName: "B"})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Equal(t, "foo@bar.com", f.repo.created.Email)
}

func TestSignup_OtherFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db error: fk violation")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Password: "longenough", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrDuplicateEmail))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWhoAmI_Success(t *testing.T) {
	f := newFixture(t)
	f.repo.byID = f.storedUser(t, "longenough")

	tok, err := f.tokens.Issue(auth.Payload{Sub: testUserID, Email: "a@b.com"}, false)
	require.NoError(t, err)

	u, err := f.svc.WhoAmI(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, u.ID)
}

func TestWhoAmI_InvalidToken(t *testing.T) {
	f := newFixture(t)

	other := auth.NewTokenService([]byte("another-secret"), time.Hour, time.Hour)
	tok, err := other.Issue(auth.Payload{Sub: testUserID}, false)
	require.NoError(t, err)

	_, err = f.svc.WhoAmI(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Empty(t, f.repo.calls)
}

func TestWhoAmI_DeletedUser(t *testing.T) {
	f := newFixture(t)
	f.repo.byIDErr = common.ErrorNotFound

	tok, err := f.tokens.Issue(auth.Payload{Sub: testUserID}, false)
	require.NoError(t, err)

	_, err = f.svc.WhoAmI(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWhoAmI_NonUUIDSubject(t *testing.T) {
	f := newFixture(t)

	tok, err := f.tokens.Issue(auth.Payload{Sub: "not-a-uuid"}, false)
	require.NoError(t, err)

	_, err = f.svc.WhoAmI(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, f.repo.calls)
}
