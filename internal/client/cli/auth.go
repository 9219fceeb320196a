package cli

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/streetcredrx/credauth/internal/client/client"
	"github.com/streetcredrx/credauth/internal/client/services"
	"github.com/streetcredrx/credauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// explain turns API errors into the message the server sent.
func explain(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, client.ErrUnavailable):
		return "Server unavailable"
	default:
		return err.Error()
	}
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context, rememberMe bool) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.authService.Login(ctx, email, password, rememberMe)
	if err != nil {
		a.println("Login unsuccessful:", explain(err))
		return err
	}

	a.session, err = a.authService.Current(ctx)
	if err != nil {
		return err
	}
	a.println("Logged in as", user.DisplayName())
	return nil
}

// Signup prompts for the profile and credentials and creates an account.
func (a *App) Signup(ctx context.Context, rememberMe bool) error {
	in := client.SignupInput{RememberMe: rememberMe}
	var err error

	if in.FirstName, err = getSimpleText(a.reader, "Enter first name", a.out); err != nil {
		return err
	}
	if in.LastName, err = getSimpleText(a.reader, "Enter last name", a.out); err != nil {
		return err
	}
	if in.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if in.Password, err = getPassword(a.out); err != nil {
		return err
	}
	defer common.WipeByteArray(in.Password)

	if utf8.RuneCount(in.Password) < common.MinPasswordLength {
		a.println(fmt.Sprintf("Password must be at least %d characters long", common.MinPasswordLength))
		return common.ErrPasswordTooShort
	}

	res, err := a.authService.Signup(ctx, in)
	if err != nil {
		a.println("Signup unsuccessful:", explain(err))
		return err
	}

	a.session, err = a.authService.Current(ctx)
	if err != nil {
		return err
	}
	a.println(res.Message)
	return nil
}

// WhoAmI prints the signed-in user as the server reports it.
func (a *App) WhoAmI(ctx context.Context) error {
	user, err := a.authService.WhoAmI(ctx)
	if errors.Is(err, services.ErrNotLoggedIn) {
		a.session = nil
		a.println("Not logged in")
		return err
	}
	if err != nil {
		a.println("Error:", explain(err))
		return err
	}

	a.println("ID:     ", user.ID)
	a.println("Email:  ", user.Email)
	a.println("Name:   ", user.DisplayName())
	if role := user.Role(); role != "" {
		a.println("Role:   ", role)
	}
	a.println("Verified:", user.EmailVerified)
	return nil
}

// Logout forgets the session on this machine.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.session = nil
	a.println("Logged out")
	return nil
}
