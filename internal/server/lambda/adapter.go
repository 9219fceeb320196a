// Package lambda serves the auth routes as AWS Lambda functions behind API
// Gateway, one function per route.
package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server"
	"github.com/streetcredrx/credauth/internal/server/api"
	"github.com/streetcredrx/credauth/internal/server/config"
)

// ToRequest converts an API Gateway proxy event. Multi-value headers win
// over single-value ones with the same name.
func ToRequest(ev events.APIGatewayProxyRequest) (*api.Request, error) {
	h := http.Header{}
	for k, v := range ev.Headers {
		h.Set(k, v)
	}
	for k, vs := range ev.MultiValueHeaders {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}

	body := []byte(ev.Body)
	if ev.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = b
	}

	return &api.Request{Method: ev.HTTPMethod, Header: h, Body: body}, nil
}

// FromResponse converts a route response to the API Gateway shape.
func FromResponse(r *api.Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    map[string]string{},
		Body:       string(r.Body),
	}
	for k, vs := range r.Header {
		if len(vs) == 1 {
			out.Headers[k] = vs[0]
			continue
		}
		if out.MultiValueHeaders == nil {
			out.MultiValueHeaders = map[string][]string{}
		}
		out.MultiValueHeaders[k] = vs
	}
	return out
}

// Handle adapts one route to the Lambda handler signature.
func Handle(rt api.Route) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		req, err := ToRequest(ev)
		if err != nil {
			return plainError(http.StatusBadRequest, "Invalid request body"), nil
		}
		return FromResponse(rt.Serve(ctx, req)), nil
	}
}

// Runtime builds the handler graph and the database pool on the first
// invocation and reuses them for the life of the container.
type Runtime struct {
	route  string
	cfg    *config.Config
	logger logging.Logger
	build  func(context.Context, *config.Config, logging.Logger) (*server.Deps, error)

	mu    sync.Mutex
	rt    api.Route
	ready bool
}

// NewRuntime expects an already validated configuration; loading it in the
// function's main makes a missing DATABASE_URL fail at init.
func NewRuntime(route string, cfg *config.Config, logger logging.Logger) *Runtime {
	return &Runtime{route: route, cfg: cfg, logger: logger, build: server.BuildDeps}
}

// init builds the route on first use. A failed build is not cached, so a
// warm container retries on the next invocation.
func (r *Runtime) init(ctx context.Context) (api.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		return r.rt, nil
	}

	deps, err := r.build(ctx, r.cfg, r.logger)
	if err != nil {
		return api.Route{}, err
	}
	rt, ok := deps.Handler.Route(r.route)
	if !ok {
		_ = deps.Close()
		return api.Route{}, fmt.Errorf("unknown route %q", r.route)
	}
	r.rt, r.ready = rt, true
	return rt, nil
}

// Handle serves one invocation. Build failures are returned as a 500
// envelope, not as an invocation error.
func (r *Runtime) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	rt, err := r.init(ctx)
	if err != nil {
		r.logger.Error(ctx, "function init failed", "route", r.route, "error", err.Error())
		return plainError(http.StatusInternalServerError, "Internal server error"), nil
	}
	return Handle(rt)(ctx, ev)
}

func plainError(status int, msg string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}
}
