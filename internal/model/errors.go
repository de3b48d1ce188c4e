package model

import "errors"

var (
	// ErrNotFound indicates the resource is absent or soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied indicates the caller did not resolve to a role allowed to act.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidation represents malformed input.
	ErrValidation = errors.New("validation error")
	// ErrConflict indicates a uniqueness violation, e.g. a reused student email.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is returned by login when the id or password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
