// Package common defines sentinel errors shared by the store, core and api
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Identity errors.
	ErrMissingFields         = errors.New("username, email and password are required")
	ErrUserExists            = errors.New("username or email already exists")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrNoPendingRegistration = errors.New("no pending registration")
	ErrInvalidOTP            = errors.New("invalid verification code")

	// Configuration errors.
	ErrNotConfigured = errors.New("not configured")
)
