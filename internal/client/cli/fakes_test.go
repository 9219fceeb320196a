package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/streetcredrx/credauth/internal/client/client"
	"github.com/streetcredrx/credauth/internal/client/config"
	"github.com/streetcredrx/credauth/internal/client/models"
	"github.com/streetcredrx/credauth/internal/client/session"
)

// fakeAuth implements services.AuthService for App tests.
type fakeAuth struct {
	sess *session.Session

	loginErr   error
	signupErr  error
	restoreErr error
	whoamiErr  error
	logoutErr  error

	lastEmail    string
	lastPassword string
	lastRemember bool
	lastSignup   client.SignupInput
	logoutCalled bool
}

func (f *fakeAuth) Login(_ context.Context, email string, password []byte, rememberMe bool) (*models.User, error) {
	f.lastEmail, f.lastPassword, f.lastRemember = email, string(password), rememberMe
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := models.User{ID: "u-1", Email: email}
	f.sess = &session.Session{Token: "tok", User: &u, RememberMe: rememberMe}
	return &u, nil
}

func (f *fakeAuth) Signup(_ context.Context, in client.SignupInput) (*client.AuthResult, error) {
	f.lastSignup = in
	f.lastSignup.Password = append([]byte(nil), in.Password...)
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	u := models.User{ID: "u-2", Email: in.Email}
	f.sess = &session.Session{Token: "tok", User: &u}
	return &client.AuthResult{Token: "tok", User: u, Message: "Account created successfully"}, nil
}

func (f *fakeAuth) Restore(context.Context) (*session.Session, error) {
	return f.sess, f.restoreErr
}

func (f *fakeAuth) WhoAmI(context.Context) (*models.User, error) {
	if f.whoamiErr != nil {
		return nil, f.whoamiErr
	}
	return f.sess.User, nil
}

func (f *fakeAuth) Current(context.Context) (*session.Session, error) {
	return f.sess, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	if f.logoutErr != nil {
		return f.logoutErr
	}
	f.sess = nil
	return nil
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

func testApp(f *fakeAuth, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return newApp(cfg, f, strings.NewReader(input), &out), &out
}
