package common

import "time"

// AuthorizationHeaderName carries the bearer token on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the required prefix of the Authorization header value.
const BearerPrefix = "Bearer "

// Password length bounds. bcrypt ignores everything past 72 bytes.
const (
	MinPasswordLength   = 8
	MaxPasswordByteSize = 72
)

// RememberMeDuration is how long a remember-me session (and its token) lives.
const RememberMeDuration = 30 * 24 * time.Hour

// DefaultSessionDuration is the token lifetime without remember-me.
const DefaultSessionDuration = 12 * time.Hour

// WipeByteArray overwrites b with zeros. It is used for passwords read from
// the terminal. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
