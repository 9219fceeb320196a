package api

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/streetcredrx/credauth/internal/common"
	"github.com/streetcredrx/credauth/internal/logging"
)

type classified struct {
	target  error
	status  int
	message string
}

// classes maps known errors to their status and client message. Order
// matters: specific validation errors come before the generic one.
var classes = []classified{
	{common.ErrMissingCredentials, http.StatusBadRequest, "Email and password are required"},
	{common.ErrMissingSignupFields, http.StatusBadRequest, "First name, last name, email, and password are required"},
	{common.ErrPasswordTooShort, http.StatusBadRequest, "Password must be at least 8 characters long"},
	{common.ErrPasswordTooLong, http.StatusBadRequest, "Password must be at most 72 bytes long"},
	{common.ErrMalformedBody, http.StatusBadRequest, "Invalid request body"},
	{common.ErrValidation, http.StatusBadRequest, "Invalid request"},
	{common.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{common.ErrDuplicateEmail, http.StatusConflict, "An account with this email already exists"},
	{common.ErrMissingAuthHeader, http.StatusUnauthorized, "Missing or invalid authorization header"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	{common.ErrorNotFound, http.StatusNotFound, "User not found"},
}

// Classify returns the status and client-facing message for err. Unknown
// errors map to 500 with fallback.
func Classify(err error, fallback string) (int, string) {
	for _, c := range classes {
		if errors.Is(err, c.target) {
			return c.status, c.message
		}
	}
	return http.StatusInternalServerError, fallback
}

// errorResponse is the single place where service errors become HTTP
// responses. Unexpected errors are logged with a stack; their text reaches
// the client only in development mode.
func (h *Handler) errorResponse(ctx context.Context, log logging.Logger, err error, fallback string) *Response {
	status, msg := Classify(err, fallback)
	if status != http.StatusInternalServerError {
		log.Debug(ctx, "request rejected", "status", status, "error", err.Error())
		return failure(status, msg, "")
	}

	log.Error(ctx, "request failed", "error", err.Error(), "stack", string(debug.Stack()))

	detail := ""
	if h.devMode {
		detail = err.Error()
	}
	return failure(status, msg, detail)
}
