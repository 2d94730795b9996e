package auth

import "errors"

var (
	// covers both unknown email and wrong password so responses never
	// reveal which emails are registered
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrDuplicateEmail = errors.New("email already registered")

	// refresh failures; all of them force a fresh login
	ErrMissingToken     = errors.New("refresh token required")
	ErrInvalidOrExpired = errors.New("invalid or expired refresh token")
	ErrTokenRevoked     = errors.New("refresh token already used or revoked")
)
