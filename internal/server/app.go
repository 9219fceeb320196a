// Package server wires the configuration, database pool, auth service and
// transports together and runs the long-running HTTP server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/streetcredrx/credauth/internal/cryptox"
	"github.com/streetcredrx/credauth/internal/dbx"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/api"
	"github.com/streetcredrx/credauth/internal/server/auth"
	"github.com/streetcredrx/credauth/internal/server/config"
	"github.com/streetcredrx/credauth/internal/server/httpserver"
	"github.com/streetcredrx/credauth/internal/server/repositories/repomanager"
	"github.com/streetcredrx/credauth/internal/server/services"
)

// openDB is a seam for tests.
var openDB = dbx.OpenPostgres

// Deps is the request-handling graph shared by every deployment.
type Deps struct {
	DB      *sql.DB
	Handler *api.Handler
}

// Close releases the database pool.
func (d *Deps) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// BuildDeps opens the pool, applies migrations when asked to and builds
// the API handler.
func BuildDeps(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Deps, error) {
	if cfg.InsecureSecret {
		logger.Warn(ctx, "JWT_SECRET is not set, signing tokens with the development secret")
	}

	db, err := openDB(cfg.DatabaseDSN, cfg.PoolOptions())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if cfg.RunMigrations {
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info(ctx, "migrations applied")
	}

	hasher := cryptox.NewHasher(cfg.BcryptCost)
	if hasher.Cost() != cfg.BcryptCost {
		logger.Warn(ctx, "bcrypt cost out of range, using default", "configured", cfg.BcryptCost, "cost", hasher.Cost())
	}

	tokens := auth.NewTokenService([]byte(cfg.SecretKey), cfg.DefaultTokenTTL, cfg.RememberMeTokenTTL)
	svc := services.NewAuthService(db, rm, hasher, tokens, logger)

	return &Deps{DB: db, Handler: api.NewHandler(svc, logger, cfg.DevMode())}, nil
}

type App struct {
	config *config.Config
	logger logging.Logger
	deps   *Deps
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env, os.Stdout)

	deps, err := BuildDeps(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, deps: deps}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// rateLimiter returns nil when Redis is not configured or not reachable.
func (app *App) rateLimiter(ctx context.Context) *httpserver.RateLimiter {
	if app.config.RedisAddr == "" {
		return nil
	}
	rdb, err := httpserver.NewRedisClient(ctx, app.config.RedisAddr)
	if err != nil {
		app.logger.Warn(ctx, "rate limiting disabled", "error", err.Error())
		return nil
	}
	return httpserver.NewRateLimiter(rdb, app.config.RateLimit, app.config.RateLimitWindow, app.logger)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpserver.NewServer(app.config.EndpointAddrHTTP, app.deps.Handler, app.rateLimiter(ctx), app.config.TrustedProxyNets(), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env, "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.deps.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
