// Package api is the HTTP contract of the auth endpoints, independent of how
// a request arrives. Transport adapters (the echo server, the Lambda
// functions) convert their native types to Request, call Route.Serve and
// write back the Response.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/models"
	"github.com/streetcredrx/credauth/internal/server/services"
)

// Route names double as the URL path segment on both deployments.
const (
	RouteLogin  = "auth-login"
	RouteSignup = "auth-signup"
	RouteMe     = "auth-me"
	RouteHealth = "health"
)

type Request struct {
	Method string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HandlerFunc handles a request whose method is already known to be allowed.
type HandlerFunc func(ctx context.Context, log logging.Logger, r *Request) *Response

// Authenticator is the business logic behind the routes.
type Authenticator interface {
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error)
	WhoAmI(ctx context.Context, token string) (*models.PublicUser, error)
}

type Route struct {
	Name    string
	Methods []string
	handle  HandlerFunc
	logger  logging.Logger
}

// Serve applies CORS, answers preflight, rejects other methods with 405 and
// dispatches to the route handler.
func (rt Route) Serve(ctx context.Context, r *Request) *Response {
	log := rt.logger.With("route", rt.Name, "request_id", uuid.NewString())

	var resp *Response
	switch {
	case r.Method == http.MethodOptions:
		resp = &Response{StatusCode: http.StatusOK, Header: http.Header{}}
	case !slices.Contains(rt.Methods, r.Method):
		resp = failure(http.StatusMethodNotAllowed, "Method not allowed", "")
	default:
		if r.Header == nil {
			r.Header = http.Header{}
		}
		resp = rt.handle(ctx, log, r)
	}

	setCORS(resp.Header, rt.AllowedMethods())
	return resp
}

// AllowedMethods returns the route methods plus OPTIONS.
func (rt Route) AllowedMethods() []string {
	return append(slices.Clone(rt.Methods), http.MethodOptions)
}

func setCORS(h http.Header, methods []string) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
}

// envelope is the uniform body of the auth routes.
type envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Token   string             `json:"token,omitempty"`
	User    *models.PublicUser `json:"user,omitempty"`
	Error   string             `json:"error,omitempty"`
	Detail  string             `json:"detail,omitempty"`
}

func writeJSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"Internal server error"}`)
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return &Response{StatusCode: status, Header: h, Body: body}
}

func failure(status int, msg, detail string) *Response {
	return writeJSON(status, envelope{Success: false, Error: msg, Detail: detail})
}
