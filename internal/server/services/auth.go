// Package services holds the server-side business logic. AuthService
// implements login, signup and whoami once; every transport adapter calls it.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/streetcredrx/credauth/internal/common"
	"github.com/streetcredrx/credauth/internal/dbx"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/auth"
	"github.com/streetcredrx/credauth/internal/server/models"
	"github.com/streetcredrx/credauth/internal/server/repositories/repomanager"
)

// InvalidLoginDelay is waited before every failed credential check so that
// unknown emails and wrong passwords take the same time.
const InvalidLoginDelay = 500 * time.Millisecond

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type TokenIssuer interface {
	Issue(p auth.Payload, rememberMe bool) (string, error)
	Verify(token string) (*auth.Payload, error)
}

type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

type SignupInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	RememberMe bool
}

// AuthResult is returned by a successful login or signup.
type AuthResult struct {
	Token string
	User  models.PublicUser
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenIssuer
	logger      logging.Logger
	sleep       func(time.Duration)
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, h PasswordHasher, t TokenIssuer, l logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      h,
		tokens:      t,
		logger:      l.With("module", "auth"),
		sleep:       time.Sleep,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks credentials, stamps the sign-in time and issues a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, common.ErrMissingCredentials
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.rejectLogin(ctx, email, "unknown email")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.HasPassword() {
		return nil, s.rejectLogin(ctx, email, "no password set")
	}
	if !s.hasher.Verify(in.Password, *user.EncryptedPassword) {
		return nil, s.rejectLogin(ctx, email, "password mismatch")
	}

	if err := repo.TouchLastSignIn(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("touch last sign in: %w", err)
	}

	token, err := s.tokens.Issue(auth.Payload{
		Sub:   user.ID,
		Email: user.Email,
		Role:  user.EffectiveRole(),
	}, in.RememberMe)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed in", "user_id", user.ID, "remember_me", in.RememberMe)
	return &AuthResult{Token: token, User: user.Public()}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, email, reason string) error {
	s.sleep(InvalidLoginDelay)
	s.logger.Warn(ctx, "login rejected", "email", email, "reason", reason)
	return common.ErrInvalidCredentials
}

// Signup validates the input, creates the user and profile atomically and
// issues a token for the new account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	if email == "" || in.Password == "" || firstName == "" || lastName == "" {
		return nil, common.ErrMissingSignupFields
	}
	if utf8.RuneCountInString(in.Password) < common.MinPasswordLength {
		return nil, common.ErrPasswordTooShort
	}
	if len(in.Password) > common.MaxPasswordByteSize {
		return nil, common.ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	var created *models.UserWithProfile
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var txErr error
		created, txErr = s.repomanager.Users(tx).CreateUserAndProfile(ctx, models.NewUser{
			Email:        email,
			PasswordHash: hash,
			FirstName:    firstName,
			LastName:     lastName,
			RoleID:       models.DefaultRoleID,
		})
		return txErr
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	role := models.RoleUser
	token, err := s.tokens.Issue(auth.Payload{
		Sub:   created.ID,
		Email: created.Email,
		Role:  &role,
	}, in.RememberMe)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account created", "user_id", created.ID)
	return &AuthResult{Token: token, User: created.Public()}, nil
}

// WhoAmI resolves the user behind a bearer token. A token whose subject is
// no longer a live user yields common.ErrorNotFound.
func (s *AuthService) WhoAmI(ctx context.Context, token string) (*models.PublicUser, error) {
	payload, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(payload.Sub); err != nil {
		return nil, common.ErrorNotFound
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, payload.Sub)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	pub := user.Public()
	return &pub, nil
}
