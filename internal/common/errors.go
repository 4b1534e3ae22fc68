// Package common defines shared constants and sentinel errors used across
// client and server layers of MiniCRM. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Remote store errors.
	ErrUnavailable = errors.New("server unavailable")

	// Auth errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrLoginAlreadyExists  = errors.New("login already exists")
	ErrInvalidLoginForm    = errors.New("invalid login format")
	ErrInvalidPasswordForm = errors.New("invalid password format")
	ErrInvalidCredentials  = errors.New("invalid login/password")
)
