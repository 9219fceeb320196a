package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/streetcredrx/credauth/internal/client/client"
	"github.com/streetcredrx/credauth/internal/client/config"
	"github.com/streetcredrx/credauth/internal/client/repositories/metadata"
	"github.com/streetcredrx/credauth/internal/client/services"
	"github.com/streetcredrx/credauth/internal/client/session"
	"github.com/streetcredrx/credauth/internal/filex"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	session     *session.Session
	reader      *bufio.Reader
	out         io.Writer
	closers     []io.Closer
}

// NewApp opens the persistent store under the state dir and a private
// in-memory store for sessions that should not outlive the process.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	dir, err := filex.EnsureDir(c.StateDir)
	if err != nil {
		return nil, err
	}

	localDB, err := client.InitDatabase(ctx, config.StateFile(dir))
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	ephemeralDB, err := client.InitDatabase(ctx, client.MemoryDSN)
	if err != nil {
		_ = localDB.Close()
		return nil, fmt.Errorf("error initializing session store: %w", err)
	}

	store := session.NewStore(metadata.NewSQLiteRepository(localDB), metadata.NewSQLiteRepository(ephemeralDB))
	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)

	a := newApp(c, services.NewAuthService(api, store), os.Stdin, os.Stdout)
	a.closers = []io.Closer{localDB, ephemeralDB}
	return a, nil
}

func newApp(c *config.Config, as services.AuthService, in io.Reader, out io.Writer) *App {
	return &App{config: c, authService: as, reader: bufio.NewReader(in), out: out}
}

// Close releases both session databases.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// Restore loads the stored session and refreshes it from the server. An
// unreachable server keeps the cached session.
func (a *App) Restore(ctx context.Context) error {
	sess, err := a.authService.Restore(ctx)
	if err != nil && !errors.Is(err, client.ErrUnavailable) {
		return err
	}
	if err != nil {
		a.println("Server unavailable, using cached session")
	}
	a.session = sess
	return nil
}
