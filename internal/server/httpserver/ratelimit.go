package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/streetcredrx/credauth/internal/logging"
)

// fixedWindow increments the counter for the current window and returns the
// new count and the remaining window length in milliseconds.
var fixedWindow = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return { count, ttl }
`)

// RateLimiter caps requests per client IP and route in fixed windows kept in
// Redis. Redis errors let the request through.
type RateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger logging.Logger
}

func NewRateLimiter(rdb redis.Scripter, limit int, window time.Duration, logger logging.Logger) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window, prefix: "credauth:rl", logger: logger.With("module", "ratelimit")}
}

// NewRedisClient returns a client for addr after a short ping, or an error
// when Redis is unreachable.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (l *RateLimiter) key(route, ip string) string {
	return l.prefix + ":" + route + ":" + ip
}

// Allow records one hit and reports whether it fits the window.
func (l *RateLimiter) Allow(ctx context.Context, route, ip string) (allowed bool, remaining int, retryAfter time.Duration, err error) {
	vals, err := fixedWindow.Run(ctx, l.rdb, []string{l.key(route, ip)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return true, l.limit, 0, err
	}
	if len(vals) != 2 {
		return true, l.limit, 0, fmt.Errorf("unexpected script reply %v", vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	remaining = l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, ttl, nil
}

// Middleware guards one route.
func (l *RateLimiter) Middleware(route string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			ctx := c.Request().Context()
			allowed, remaining, retryAfter, err := l.Allow(ctx, route, c.RealIP())
			if err != nil {
				l.logger.Warn(ctx, "rate limiter unavailable", "error", err.Error())
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				secs := int(retryAfter.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				h.Set("Access-Control-Allow-Origin", "*")
				return c.JSON(http.StatusTooManyRequests, map[string]any{"success": false, "error": "Too many requests"})
			}
			return next(c)
		}
	}
}
