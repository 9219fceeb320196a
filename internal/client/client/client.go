package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/streetcredrx/credauth/internal/client/models"
	"github.com/streetcredrx/credauth/internal/netx"
)

// Client is the auth API as seen by the CLI.
type Client interface {
	Login(ctx context.Context, email string, password []byte, rememberMe bool) (*AuthResult, error)
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Me(ctx context.Context, token string) (*models.User, error)
}

type SignupInput struct {
	Email      string
	Password   []byte
	FirstName  string
	LastName   string
	RememberMe bool
}

type AuthResult struct {
	Token   string
	Message string
	User    models.User
}

// envelope is the body every auth route answers with.
type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Error   string       `json:"error"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient targets baseURL, the prefix the routes hang off, for example
// "http://127.0.0.1:8080/api" or "https://example.org/.netlify/functions".
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) call(ctx context.Context, method, route string, header http.Header, in any) (*envelope, error) {
	var out envelope
	status, err := netx.DoJSON(ctx, c.http, method, c.baseURL+"/"+route, header, in, &out)
	if status == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, &APIError{Status: status, Message: http.StatusText(status)}
	}

	if status < 200 || status > 299 || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, &APIError{Status: status, Message: msg}
	}
	return &out, nil
}

func toResult(env *envelope) (*AuthResult, error) {
	if env.Token == "" || env.User == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "incomplete auth response"}
	}
	return &AuthResult{Token: env.Token, Message: env.Message, User: *env.User}, nil
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte, rememberMe bool) (*AuthResult, error) {
	env, err := c.call(ctx, http.MethodPost, "auth-login", nil, map[string]any{
		"email":      email,
		"password":   string(password),
		"rememberMe": rememberMe,
	})
	if err != nil {
		return nil, err
	}
	return toResult(env)
}

func (c *HTTPClient) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	env, err := c.call(ctx, http.MethodPost, "auth-signup", nil, map[string]any{
		"email":      in.Email,
		"password":   string(in.Password),
		"firstName":  in.FirstName,
		"lastName":   in.LastName,
		"rememberMe": in.RememberMe,
	})
	if err != nil {
		return nil, err
	}
	return toResult(env)
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*models.User, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)

	env, err := c.call(ctx, http.MethodGet, "auth-me", h, nil)
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "incomplete auth response"}
	}
	return env.User, nil
}
