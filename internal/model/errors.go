package model

import "errors"

var (
	// Session related errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoRefreshToken     = errors.New("no refresh token")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Backend related errors
	ErrNotFound = errors.New("not found")
	ErrUpstream = errors.New("backend unavailable")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
