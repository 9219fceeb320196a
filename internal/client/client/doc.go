// Package client talks to the credauth HTTP API and bootstraps the local
// state database of the CLI.
//
// Failures are reported as sentinel errors matched with errors.Is:
// ErrUnavailable when the server cannot be reached, ErrUnauthorized for a
// 401. Any other rejected call returns an *APIError carrying the status and
// the server's error message.
package client
