// Package users is the Postgres-backed user repository.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/streetcredrx/credauth/internal/common"
	"github.com/streetcredrx/credauth/internal/dbx"
	"github.com/streetcredrx/credauth/internal/server/models"
)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

const selectUserWithProfile = `SELECT u.id, u.email, u.encrypted_password, u.email_confirmed_at,
		COALESCE(u.is_super_admin, FALSE), u.created_at, u.updated_at,
		p.first_name, p.last_name, p.role_id, r.name AS role_name
	FROM users u
	LEFT JOIN profiles p ON p.id = u.id
	LEFT JOIN roles r ON r.id = p.role_id
	`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.UserWithProfile, error) {
	query := selectUserWithProfile +
		`WHERE LOWER(u.email) = LOWER($1) AND u.deleted_at IS NULL
	LIMIT 1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.UserWithProfile, error) {
	query := selectUserWithProfile +
		`WHERE u.id = $1 AND u.deleted_at IS NULL
	LIMIT 1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.UserWithProfile, error) {
	u := &models.UserWithProfile{}
	err := row.Scan(&u.ID, &u.Email, &u.EncryptedPassword, &u.EmailConfirmedAt,
		&u.IsSuperAdmin, &u.CreatedAt, &u.UpdatedAt,
		&u.FirstName, &u.LastName, &u.RoleID, &u.RoleName)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *PostgresRepository) CreateUserAndProfile(ctx context.Context, in models.NewUser) (*models.UserWithProfile, error) {
	meta, err := json.Marshal(map[string]string{"first_name": in.FirstName, "last_name": in.LastName})
	if err != nil {
		return nil, err
	}

	userQuery :=
		`INSERT INTO users (email, encrypted_password, email_confirmed_at, confirmed_at, raw_user_meta_data, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW(), $3, NOW(), NOW())
		 RETURNING id, email, COALESCE(is_super_admin, FALSE), email_confirmed_at, created_at, updated_at
		 `

	u := &models.UserWithProfile{}
	err = r.db.QueryRowContext(ctx, userQuery, in.Email, in.PasswordHash, string(meta)).
		Scan(&u.ID, &u.Email, &u.IsSuperAdmin, &u.EmailConfirmedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}

	profileQuery :=
		`INSERT INTO profiles (id, email, first_name, last_name, role_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 `

	roleID := in.RoleID
	if roleID == 0 {
		roleID = models.DefaultRoleID
	}

	if _, err := r.db.ExecContext(ctx, profileQuery, u.ID, u.Email, in.FirstName, in.LastName, roleID); err != nil {
		return nil, classify(err)
	}

	first, last, roleName := in.FirstName, in.LastName, models.RoleUser
	u.FirstName = &first
	u.LastName = &last
	u.RoleID = &roleID
	u.RoleName = &roleName
	hash := in.PasswordHash
	u.EncryptedPassword = &hash

	return u, nil
}

func (r *PostgresRepository) TouchLastSignIn(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET last_sign_in_at = NOW(), updated_at = NOW()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrDuplicateEmail, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}
