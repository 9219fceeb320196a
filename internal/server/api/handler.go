package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/streetcredrx/credauth/internal/common"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/services"
)

type Handler struct {
	auth    Authenticator
	logger  logging.Logger
	devMode bool
	now     func() time.Time
}

// NewHandler builds the route set. devMode adds error details to 500
// responses and must stay off in production.
func NewHandler(a Authenticator, l logging.Logger, devMode bool) *Handler {
	return &Handler{auth: a, logger: l.With("module", "api"), devMode: devMode, now: time.Now}
}

// Routes returns the auth routes followed by the health route.
func (h *Handler) Routes() []Route {
	return []Route{
		h.route(RouteLogin, []string{http.MethodPost}, h.login),
		h.route(RouteSignup, []string{http.MethodPost}, h.signup),
		h.route(RouteMe, []string{http.MethodGet}, h.me),
		h.route(RouteHealth, []string{http.MethodGet}, h.health),
	}
}

// Route looks a route up by name.
func (h *Handler) Route(name string) (Route, bool) {
	for _, r := range h.Routes() {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

func (h *Handler) route(name string, methods []string, fn HandlerFunc) Route {
	return Route{Name: name, Methods: methods, handle: fn, logger: h.logger}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	RememberMe bool   `json:"rememberMe"`
}

func decode(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return common.ErrMalformedBody
	}
	return nil
}

func (h *Handler) login(ctx context.Context, log logging.Logger, r *Request) *Response {
	var in loginRequest
	if err := decode(r.Body, &in); err != nil {
		return h.errorResponse(ctx, log, err, "Internal server error")
	}

	res, err := h.auth.Login(ctx, services.LoginInput{Email: in.Email, Password: in.Password, RememberMe: in.RememberMe})
	if err != nil {
		return h.errorResponse(ctx, log, err, "Internal server error")
	}

	return writeJSON(http.StatusOK, envelope{Success: true, Token: res.Token, User: &res.User})
}

func (h *Handler) signup(ctx context.Context, log logging.Logger, r *Request) *Response {
	var in signupRequest
	if err := decode(r.Body, &in); err != nil {
		return h.errorResponse(ctx, log, err, "Failed to create account")
	}

	res, err := h.auth.Signup(ctx, services.SignupInput{
		Email:      in.Email,
		Password:   in.Password,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		RememberMe: in.RememberMe,
	})
	if err != nil {
		return h.errorResponse(ctx, log, err, "Failed to create account")
	}

	return writeJSON(http.StatusOK, envelope{
		Success: true,
		Message: "Account created successfully",
		Token:   res.Token,
		User:    &res.User,
	})
}

func (h *Handler) me(ctx context.Context, log logging.Logger, r *Request) *Response {
	token, err := BearerToken(r.Header)
	if err != nil {
		return h.errorResponse(ctx, log, err, "Internal server error")
	}

	user, err := h.auth.WhoAmI(ctx, token)
	if err != nil {
		return h.errorResponse(ctx, log, err, "Internal server error")
	}

	return writeJSON(http.StatusOK, envelope{Success: true, User: user})
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) health(context.Context, logging.Logger, *Request) *Response {
	return writeJSON(http.StatusOK, healthResponse{Status: "ok", Timestamp: h.now().UTC()})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(h http.Header) (string, error) {
	v := h.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(v, common.BearerPrefix) {
		return "", common.ErrMissingAuthHeader
	}
	token := strings.TrimSpace(strings.TrimPrefix(v, common.BearerPrefix))
	if token == "" {
		return "", common.ErrMissingAuthHeader
	}
	return token, nil
}
