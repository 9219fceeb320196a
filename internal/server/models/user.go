// Package models holds the server-side user types: the joined storage view
// and the projection returned to clients.
package models

import "time"

// Role names and the role assigned at signup.
const (
	RoleUser       = "user"
	RoleSuperAdmin = "super_admin"

	DefaultRoleID int64 = 1
)

// UserWithProfile is one row of users LEFT JOIN profiles LEFT JOIN roles.
// Profile columns are nil for accounts that never got a profile row.
type UserWithProfile struct {
	ID                string
	Email             string
	EncryptedPassword *string
	EmailConfirmedAt  *time.Time
	IsSuperAdmin      bool
	CreatedAt         *time.Time
	UpdatedAt         *time.Time
	FirstName         *string
	LastName          *string
	RoleID            *int64
	RoleName          *string
}

// NewUser is the input of the signup insert.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleID       int64
}

// PublicUser is what clients see. It never carries the password hash.
type PublicUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     *string    `json:"firstName"`
	LastName      *string    `json:"lastName"`
	RoleID        *int64     `json:"roleId"`
	RoleName      *string    `json:"roleName"`
	IsSuperAdmin  bool       `json:"isSuperAdmin"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     *time.Time `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt"`
}

// Public projects u for the HTTP response.
func (u *UserWithProfile) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		RoleID:        u.RoleID,
		RoleName:      u.RoleName,
		IsSuperAdmin:  u.IsSuperAdmin,
		EmailVerified: u.EmailConfirmedAt != nil,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// EffectiveRole is the role embedded in tokens: the profile role name, then
// "super_admin" for flagged accounts without one, otherwise nil.
func (u *UserWithProfile) EffectiveRole() *string {
	if u.RoleName != nil && *u.RoleName != "" {
		r := *u.RoleName
		return &r
	}
	if u.IsSuperAdmin {
		r := RoleSuperAdmin
		return &r
	}
	return nil
}

// HasPassword reports whether password login is possible for u.
func (u *UserWithProfile) HasPassword() bool {
	return u.EncryptedPassword != nil && *u.EncryptedPassword != ""
}
