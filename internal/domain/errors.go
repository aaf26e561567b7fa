// Package domain provides shared domain-level error kinds.
//
// Every guarded operation reports failures as an *Error whose Kind is one of
// the sentinels below. The HTTP adapter maps kinds to status codes in one
// place; the Detail is what the caller sees.
package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation marks requests the guard refuses (bad input, policy violations).
	ErrValidation = errors.New("validation")
	// ErrUnauthorized marks a missing or mismatched shared-secret token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks an operation that exceeded its time budget.
	ErrTimeout = errors.New("timeout")
	// ErrInternal marks server-side faults whose detail is safe to expose.
	ErrInternal = errors.New("internal")
)

// Error is a domain failure with a caller-facing detail.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string { return e.Detail }

// Unwrap lets errors.Is match the kind sentinel.
func (e *Error) Unwrap() error { return e.Kind }

// Validationf returns an ErrValidation error with a formatted detail.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Detail: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound error with the given detail.
func NotFound(detail string) *Error {
	return &Error{Kind: ErrNotFound, Detail: detail}
}

// Unauthorized returns an ErrUnauthorized error with the given detail.
func Unauthorized(detail string) *Error {
	return &Error{Kind: ErrUnauthorized, Detail: detail}
}

// Internal returns an ErrInternal error with the given detail.
func Internal(detail string) *Error {
	return &Error{Kind: ErrInternal, Detail: detail}
}

// TimeoutError reports a process killed after its time budget. Output holds
// whatever the process printed before it was stopped, already truncated.
type TimeoutError struct {
	After  time.Duration
	Output string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s", e.After)
}

// Unwrap lets errors.Is match ErrTimeout.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }
