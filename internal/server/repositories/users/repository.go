package users

import (
	"context"

	"github.com/streetcredrx/credauth/internal/server/models"
)

// Repository reads and writes credential records joined with their profile
// and role. Soft-deleted users are invisible to every method.
type Repository interface {
	// FindByEmail matches case-insensitively; common.ErrorNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*models.UserWithProfile, error)
	// FindByID returns common.ErrorNotFound when absent.
	FindByID(ctx context.Context, id string) (*models.UserWithProfile, error)
	// CreateUserAndProfile inserts the users and profiles rows. Run it on a
	// transaction (dbx.WithTx) so a failed profile insert leaves nothing behind.
	// A taken email yields common.ErrDuplicateEmail.
	CreateUserAndProfile(ctx context.Context, in models.NewUser) (*models.UserWithProfile, error)
	// TouchLastSignIn stamps last_sign_in_at and updated_at with NOW().
	TouchLastSignIn(ctx context.Context, id string) error
}
