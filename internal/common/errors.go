// Package common defines shared constants and sentinel errors used across
// client and server layers of credauth. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")

	// Service-level errors.
	ErrorInternal         = errors.New("internal error")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Validation errors. Every one of them wraps ErrValidation.
	ErrValidation          = errors.New("validation error")
	ErrMissingCredentials  = fmt.Errorf("%w: email and password are required", ErrValidation)
	ErrMissingSignupFields = fmt.Errorf("%w: first name, last name, email and password are required", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password is too short", ErrValidation)
	ErrPasswordTooLong     = fmt.Errorf("%w: password is too long", ErrValidation)
	ErrMalformedBody       = fmt.Errorf("%w: malformed request body", ErrValidation)

	// Auth errors. Expired, forged and malformed tokens all map to ErrInvalidToken.
	ErrInvalidToken      = errors.New("invalid token")
	ErrMissingAuthHeader = errors.New("missing or invalid authorization header")
)
