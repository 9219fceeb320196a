package repomanager

import (
	"context"
	"database/sql"

	"github.com/streetcredrx/credauth/internal/dbx"
	"github.com/streetcredrx/credauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a pool or a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
