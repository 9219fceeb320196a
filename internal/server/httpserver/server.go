// Package httpserver serves the auth routes from a long-running echo server
// under the /api prefix.
package httpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/api"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	address string
	echo    *echo.Echo
	logger  logging.Logger
}

// NewServer registers every route of h at /api/<route>. limiter may be nil;
// when set it guards login and signup. Forwarding headers are honoured only
// when the peer is in one of the trusted proxy ranges.
func NewServer(address string, h *api.Handler, limiter *RateLimiter, trustedProxies []*net.IPNet, logger logging.Logger) *Server {
	l := logger.With("module", "httpserver")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor(trustedProxies)
	e.Use(middleware.Recover())
	e.Use(requestLogger(l))

	for _, rt := range h.Routes() {
		var mw []echo.MiddlewareFunc
		if limiter != nil && (rt.Name == api.RouteLogin || rt.Name == api.RouteSignup) {
			mw = append(mw, limiter.Middleware(rt.Name))
		}
		e.Any("/api/"+rt.Name, adapt(rt), mw...)
	}

	return &Server{address: address, echo: e, logger: l}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.address)
		if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// adapt converts between echo and the transport-agnostic api types.
func adapt(rt api.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}

		resp := rt.Serve(req.Context(), &api.Request{
			Method: req.Method,
			Header: req.Header,
			Body:   body,
		})

		for k, v := range resp.Header {
			c.Response().Header()[k] = v
		}
		c.Response().WriteHeader(resp.StatusCode)
		if len(resp.Body) > 0 {
			_, err = c.Response().Write(resp.Body)
		}
		return err
	}
}

// ipExtractor uses the socket address unless trusted proxies are configured,
// in which case X-Forwarded-For is walked back to the first untrusted hop.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func requestLogger(l logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l.Info(c.Request().Context(), "request",
				"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String())
			return nil
		},
	})
}
