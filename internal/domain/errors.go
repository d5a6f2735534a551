package domain

import "errors"

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrTokenMalformed     = errors.New("token is malformed")
)

// Refresh errors. Any of these forces a logout.
var (
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshFailed       = errors.New("token refresh failed")
	ErrSessionSuperseded   = errors.New("session changed while refreshing")
)

// Backend API errors, selected by response status.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServerError  = errors.New("backend server error")
)

// Transport errors. Never carries an HTTP status.
var (
	ErrNetwork = errors.New("backend unreachable")
)

// Storage errors.
var (
	ErrKeyNotFound = errors.New("key not found in session storage")
)
