package vscreen

import "github.com/pkg/errors"

// Caller-contract violations. They are returned wrapped with context; match
// them with errors.Is.
var (
	ErrInvalidGeometry      = errors.New("invalid screen geometry")
	ErrRowOutOfRange        = errors.New("row out of range")
	ErrColumnOutOfRange     = errors.New("column out of range")
	ErrCursorOutOfRange     = errors.New("cursor offset out of range")
	ErrNotEditable          = errors.New("row is not editable")
	ErrTooManyNotifications = errors.New("at most one notification row is allowed")
)
