package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/streetcredrx/credauth/internal/dbx"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/api"
	"github.com/streetcredrx/credauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = "postgres://u:p@localhost/db"
	cfg.SecretKey = "test-secret"
	cfg.BcryptCost = 4
	return cfg
}

func TestBuildDeps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	old := openDB
	t.Cleanup(func() { openDB = old })
	var gotDSN string
	openDB = func(dsn string, _ dbx.PoolOptions) (*sql.DB, error) {
		gotDSN = dsn
		return db, nil
	}

	deps, err := BuildDeps(context.Background(), testConfig(), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/db", gotDSN)

	rt, ok := deps.Handler.Route(api.RouteHealth)
	require.True(t, ok)
	resp := rt.Serve(context.Background(), &api.Request{Method: http.MethodGet})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mock.ExpectClose()
	require.NoError(t, deps.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildDeps_OpenError(t *testing.T) {
	old := openDB
	t.Cleanup(func() { openDB = old })
	openDB = func(string, dbx.PoolOptions) (*sql.DB, error) {
		return nil, errors.New("boom")
	}

	_, err := BuildDeps(context.Background(), testConfig(), logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestDeps_CloseNil(t *testing.T) {
	var d *Deps
	assert.NoError(t, d.Close())
}
