// Package common defines sentinel errors and small constants shared by the
// client and the server. Callers should match errors with errors.Is.
package common

import "errors"

var (
	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Service errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrUserExists   = errors.New("user already exists")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// AuthorizationHeader carries the bearer access token on API requests.
const AuthorizationHeader = "Authorization"

// RequestIDHeader correlates client log lines with server log lines.
const RequestIDHeader = "X-Request-ID"
