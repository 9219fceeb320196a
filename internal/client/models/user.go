// Package models holds the client-side view of server resources.
package models

import (
	"strings"
	"time"
)

// User mirrors the user projection returned by the auth endpoints.
type User struct {
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

// DisplayName is "First Last" when a profile name is known, else the email.
func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) == 0 {
		return u.Email
	}
	return strings.Join(parts, " ")
}

// Role returns the role name, "super_admin" for super admins without one,
// or "" when unknown.
func (u *User) Role() string {
	if u.RoleName != nil && *u.RoleName != "" {
		return *u.RoleName
	}
	if u.IsSuperAdmin {
		return "super_admin"
	}
	return ""
}
