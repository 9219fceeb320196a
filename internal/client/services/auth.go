// Package services contains application services for the credauth CLI.
// This file defines the authentication service: login, signup, whoami and
// logout on top of the HTTP API client and the session store.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/streetcredrx/credauth/internal/client/client"
	"github.com/streetcredrx/credauth/internal/client/models"
	"github.com/streetcredrx/credauth/internal/client/session"
)

var ErrNotLoggedIn = errors.New("not logged in")

// SessionStore is the part of session.Store the service needs.
type SessionStore interface {
	Save(ctx context.Context, token string, user models.User, rememberMe bool) error
	Load(ctx context.Context) (*session.Session, error)
	UpdateUser(ctx context.Context, user models.User) error
	PurgeExpired(ctx context.Context) (bool, error)
	Clear(ctx context.Context) error
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login, Signup: call the server and store the returned session.
//   - Restore: startup housekeeping; purge an expired remember-me session and
//     refresh the stored user, dropping the session on any server rejection
//     and keeping it only while the server is unreachable.
//   - WhoAmI: the current user as the server sees it.
//   - Logout: forget the session locally. Tokens are stateless, so there is
//     nothing to revoke server-side.
type AuthService interface {
	Login(ctx context.Context, email string, password []byte, rememberMe bool) (*models.User, error)
	Signup(ctx context.Context, in client.SignupInput) (*client.AuthResult, error)
	Restore(ctx context.Context) (*session.Session, error)
	WhoAmI(ctx context.Context) (*models.User, error)
	Current(ctx context.Context) (*session.Session, error)
	Logout(ctx context.Context) error
}

type authService struct {
	client client.Client
	store  SessionStore
}

func NewAuthService(c client.Client, s SessionStore) AuthService {
	return &authService{client: c, store: s}
}

func (a *authService) Login(ctx context.Context, email string, password []byte, rememberMe bool) (*models.User, error) {
	res, err := a.client.Login(ctx, email, password, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if err := a.store.Save(ctx, res.Token, res.User, rememberMe); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &res.User, nil
}

func (a *authService) Signup(ctx context.Context, in client.SignupInput) (*client.AuthResult, error) {
	res, err := a.client.Signup(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("signup error: %w", err)
	}
	if err := a.store.Save(ctx, res.Token, res.User, in.RememberMe); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return res, nil
}

// Restore returns the stored session, or nil. When the server cannot be
// reached the cached session is returned together with the error.
func (a *authService) Restore(ctx context.Context) (*session.Session, error) {
	if _, err := a.store.PurgeExpired(ctx); err != nil {
		return nil, err
	}

	sess, err := a.store.Load(ctx)
	if err != nil || sess == nil {
		return nil, err
	}

	user, err := a.refresh(ctx, sess.Token)
	if errors.Is(err, ErrNotLoggedIn) {
		return nil, nil
	}
	if err != nil {
		return sess, err
	}
	sess.User = user
	return sess, nil
}

func (a *authService) WhoAmI(ctx context.Context) (*models.User, error) {
	sess, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotLoggedIn
	}
	return a.refresh(ctx, sess.Token)
}

// refresh asks the server for the user behind token. Any reply from the
// server that is not a valid user (expired token, deleted user) clears the
// session and yields ErrNotLoggedIn. Transport errors leave it alone.
func (a *authService) refresh(ctx context.Context, token string) (*models.User, error) {
	user, err := a.client.Me(ctx, token)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if cerr := a.store.Clear(ctx); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, client.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: session expired", ErrNotLoggedIn)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotLoggedIn, apiErr)
	}
	if err != nil {
		return nil, err
	}
	if err := a.store.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authService) Current(ctx context.Context) (*session.Session, error) {
	return a.store.Load(ctx)
}

func (a *authService) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}
